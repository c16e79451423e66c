package shape

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	textMu    sync.Mutex
	textFont  *opentype.Font
	textFaces = map[float64]font.Face{}
)

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	textFont = f
}

// MeasureText returns the advance width of text set at size pixels. Every
// family is measured with Go Regular, which tracks the common sans faces
// closely enough for handles and hit boxes.
func MeasureText(text string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}

	textMu.Lock()
	defer textMu.Unlock()

	face, ok := textFaces[size]
	if !ok {
		var err error
		face, err = opentype.NewFace(textFont, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			return 0
		}
		textFaces[size] = face
	}
	adv := font.MeasureString(face, text)
	return float64(adv) / 64
}
