// Package middleware holds the HTTP middleware shared by every route. It
// adapts gorilla/handlers to slog and to the server's origin list.
package middleware

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// slogRecovery feeds gorilla's recovery output (the panic value, then the
// stack) into slog.
type slogRecovery struct{}

func (slogRecovery) Println(v ...interface{}) {
	slog.Error("handler panic", "panic", strings.TrimSpace(fmt.Sprintln(v...)))
}

var recovery = handlers.RecoveryHandler(
	handlers.RecoveryLogger(slogRecovery{}),
	handlers.PrintRecoveryStack(true),
)

// Recovery turns a handler panic into a 500 and logs the stack.
// http.ErrAbortHandler is passed through so net/http can abort the response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		aborted := false
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						aborted = true
						return
					}
					panic(rec)
				}
			}()
			next.ServeHTTP(w, r)
		})
		recovery(inner).ServeHTTP(w, r)
		if aborted {
			panic(http.ErrAbortHandler)
		}
	})
}

// Logger logs one line per request once the handler returns.
func Logger(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, logRequest)
}

func logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	slog.Info("request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"size", p.Size,
		"duration", time.Since(p.TimeStamp),
	)
}

// CORS allows browser requests from the given origin hosts (host[:port],
// no scheme). "*" allows any origin.
func CORS(origins []string) mux.MiddlewareFunc {
	return handlers.CORS(
		handlers.AllowedOriginValidator(func(origin string) bool {
			return allowed(origins, origin)
		}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}

func allowed(origins []string, origin string) bool {
	if slices.Contains(origins, "*") {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	return slices.Contains(origins, host)
}
