package middleware

import (
	"fmt"
	"net/http"

	"github.com/ziggy12122/STK-Bot-sub000/api/responses"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
)

// Recoverer turns a handler panic into INTERNAL_ERROR. A panic after the
// response has started is logged only; the client sees a truncated body.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newRecorder(w)
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				ctx := logg.WithFields(r.Context(), map[string]any{
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": rec.Header().Get(requestIDHeader),
				})
				err := fmt.Errorf("handler panic: %v", recovered)
				if rec.wroteHeader() {
					logg.Error(ctx, "panic after response started", err)
					return
				}
				responses.WriteError(ctx, logg, rec, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
