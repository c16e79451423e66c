package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/portrait/portrait/internal/grid"
	"github.com/portrait/portrait/internal/history"
	"github.com/portrait/portrait/internal/shape"
)

// Client is the terminal canvas client's configuration.
type Client struct {
	RelayURL     string
	Token        string
	Room         string
	Style        shape.Style
	GridSpacing  float64
	GridVisible  bool
	GridSnap     bool
	HistoryLimit int
	// CellWidth and CellHeight are the world pixels one terminal cell spans.
	CellWidth  float64
	CellHeight float64
	LogFile    string
}

const (
	defaultClientConfigPath = "~/.config/portrait/canvas.toml"
	defaultLogFile          = "~/.local/share/portrait/canvas.log"
	defaultRoom             = "lobby"
	defaultCellWidth        = 8
	defaultCellHeight       = 16
)

func defaultClient() Client {
	return Client{
		Room:         defaultRoom,
		Style:        shape.DefaultStyle(),
		GridSpacing:  grid.DefaultSpacing,
		GridVisible:  true,
		HistoryLimit: history.DefaultLimit,
		CellWidth:    defaultCellWidth,
		CellHeight:   defaultCellHeight,
		LogFile:      mustExpand(defaultLogFile),
	}
}

type rawClient struct {
	RelayURL     string  `toml:"relay_url"`
	Token        string  `toml:"token"`
	Room         string  `toml:"room"`
	HistoryLimit int     `toml:"history_limit"`
	CellWidth    float64 `toml:"cell_width"`
	CellHeight   float64 `toml:"cell_height"`
	LogFile      string  `toml:"log_file"`
	Style        struct {
		StrokeColor string  `toml:"stroke_color"`
		FillColor   string  `toml:"fill_color"`
		StrokeWidth float64 `toml:"stroke_width"`
		Opacity     float64 `toml:"opacity"`
		FontSize    float64 `toml:"font_size"`
		FontFamily  string  `toml:"font_family"`
	} `toml:"style"`
	Grid struct {
		Spacing float64 `toml:"spacing"`
		Visible *bool   `toml:"visible"`
		Snap    bool    `toml:"snap"`
	} `toml:"grid"`
}

// LoadClient reads the client config at path, or the default location when
// path is empty. A missing file yields defaults.
func LoadClient(path string) (Client, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Client{}, err
	}

	cfg := defaultClient()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Client{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Client{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawClient
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Client{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.RelayURL = strings.TrimSpace(raw.RelayURL)
	cfg.Token = strings.TrimSpace(raw.Token)
	if room := strings.TrimSpace(raw.Room); room != "" {
		cfg.Room = room
	}
	if raw.HistoryLimit > 0 {
		cfg.HistoryLimit = raw.HistoryLimit
	}
	if raw.CellWidth > 0 {
		cfg.CellWidth = raw.CellWidth
	}
	if raw.CellHeight > 0 {
		cfg.CellHeight = raw.CellHeight
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}

	s := raw.Style
	if v := strings.TrimSpace(s.StrokeColor); v != "" {
		cfg.Style.StrokeColor = v
	}
	if v := strings.TrimSpace(s.FillColor); v != "" {
		cfg.Style.FillColor = v
	}
	if s.StrokeWidth > 0 {
		cfg.Style.StrokeWidth = s.StrokeWidth
	}
	if s.Opacity > 0 && s.Opacity <= 1 {
		cfg.Style.Opacity = s.Opacity
	}
	if s.FontSize > 0 {
		cfg.Style.FontSize = s.FontSize
	}
	if v := strings.TrimSpace(s.FontFamily); v != "" {
		cfg.Style.FontFamily = v
	}

	if raw.Grid.Spacing > 0 {
		cfg.GridSpacing = raw.Grid.Spacing
	}
	if raw.Grid.Visible != nil {
		cfg.GridVisible = *raw.Grid.Visible
	}
	cfg.GridSnap = raw.Grid.Snap

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultClientConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
