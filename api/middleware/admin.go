package middleware

import (
	"net/http"

	"github.com/ziggy12122/STK-Bot-sub000/api/responses"
	"github.com/ziggy12122/STK-Bot-sub000/api/validators"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
)

const adminTokenHeader = "X-Admin-Token"

// AdminToken guards admin routes with the shared token the Discord bot holds.
// The bot itself checks the caller's admin role before forwarding.
func AdminToken(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(adminTokenHeader)
			if raw == "" {
				raw = r.Header.Get("Authorization")
			}
			if err := validators.CheckAdminToken(raw, expected); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "admin token required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withAdmin(r.Context())))
		})
	}
}
