// Package discovery advertises a relay on the local network over mDNS and
// finds advertised relays from clients.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_portrait._tcp"

var ErrNotFound = errors.New("no relay found on the local network")

// Advertise publishes a relay listening on port. Shut the returned server
// down to withdraw it.
func Advertise(instance string, port int) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("get hostname: %w", err)
		}
		instance = host
	}

	info := []string{"path=/ws"}
	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("create mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	return server, nil
}

// Browse returns the WebSocket URLs of relays that answer within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	var urls []string
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for e := range entries {
			if u, ok := relayURL(e); ok {
				urls = append(urls, u)
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < params.Timeout {
			params.Timeout = left
		}
	}

	err := mdns.Query(params)
	close(entries)
	<-collected
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return urls, nil
}

// First returns the first relay found, or ErrNotFound.
func First(ctx context.Context, timeout time.Duration) (string, error) {
	urls, err := Browse(ctx, timeout)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", ErrNotFound
	}
	return urls[0], nil
}

func relayURL(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	path := "/ws"
	for _, field := range e.InfoFields {
		if p, ok := strings.CutPrefix(field, "path="); ok && p != "" {
			path = p
		}
	}
	host := net.JoinHostPort(e.AddrV4.String(), strconv.Itoa(e.Port))
	return "ws://" + host + path, true
}
