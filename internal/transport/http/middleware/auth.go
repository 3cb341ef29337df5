package httpmw

import (
	"net/http"

	"github.com/roomkit/roomd/config"
)

// Auth gates every API route behind the single shared key, read from
// the current config snapshot so a rotated key takes effect without a
// restart. The key travels as ?key= or the X-API-Key header.
func Auth(cfg *config.Watcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cur := cfg.Current()
			if cur.Maintenance {
				http.Error(w, `{"ok":false,"error":"server in maintenance"}`, http.StatusServiceUnavailable)
				return
			}

			key := r.URL.Query().Get("key")
			if key == "" {
				key = r.Header.Get("X-API-Key")
			}
			if key != cur.Auth.Key {
				http.Error(w, `{"ok":false,"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
