// Package content serves the role-gated sample endpoints under /api/v1/app.
// Access control is applied by the authz guard in front of the mux.
package content

import (
	"io"
	"net/http"
)

// Routes maps each sample path to its response text.
var Routes = map[string]string{
	"/api/v1/app/all":     "Public response data",
	"/api/v1/app/user":    "User response data",
	"/api/v1/app/manager": "Manager response data",
	"/api/v1/app/admin":   "Admin response data",
}

// Register wires the sample endpoints onto mux.
func Register(mux *http.ServeMux) {
	for path, body := range Routes {
		mux.HandleFunc(path, text(body))
	}
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}
}
