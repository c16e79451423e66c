// Package config loads the two configurations the binaries use.
//
// # Server
//
// The relay server reads its settings from the environment with
// envconfig. Every variable has a default, so the server starts with no
// environment at all:
//
//   - PORT: listen port (8080)
//   - DATABASE_URL: edit log location. postgres://..., sqlite:path or
//     memory: (sqlite:./data/portrait.db)
//   - JWT_SECRET: HMAC secret shared with the token issuer
//   - ALLOWED_ORIGINS: comma separated WebSocket origin patterns
//   - LOG_LEVEL: debug, info, warn or error
//   - HISTORY_LIMIT: newest edit records returned to joining clients, 0 for all
//   - APPEND_TIMEOUT: deadline for one edit log append
//   - DEV_TOKENS: expose POST /auth/token for local testing
//   - MDNS_ENABLED, MDNS_INSTANCE: advertise the relay on the LAN
//
// # Client
//
// The terminal client reads a TOML file, by default
// ~/.config/portrait/canvas.toml. A missing file is not an error, and
// missing or empty fields keep their defaults. Paths starting with ~ are
// expanded.
//
//	relay_url = "ws://localhost:8080/ws"
//	token = "..."
//	room = "lobby"
//	history_limit = 50
//	cell_width = 8
//	cell_height = 16
//	log_file = "~/.local/share/portrait/canvas.log"
//
//	[style]
//	stroke_color = "#000000"
//	fill_color = "transparent"
//	stroke_width = 2
//
//	[grid]
//	spacing = 20
//	visible = true
//	snap = false
//
// An empty relay_url makes the client look for a relay with mDNS.
package config
