package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestRelayURL(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  string
		ok    bool
	}{
		{"nil", nil, "", false},
		{"no address", &mdns.ServiceEntry{Port: 8080}, "", false},
		{"no port", &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2)}, "", false},
		{"default path", &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2), Port: 8080}, "ws://10.0.0.2:8080/ws", true},
		{"advertised path", &mdns.ServiceEntry{AddrV4: net.IPv4(192, 168, 1, 9), Port: 9000, InfoFields: []string{"path=/relay"}}, "ws://192.168.1.9:9000/relay", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := relayURL(tt.entry)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("relayURL = %q, %v, want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
