package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR response. A panic
// after the handler started writing only gets logged. http.ErrAbortHandler is
// re-raised so the server aborts the connection as intended.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracked := &wroteTracker{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", rec), "handler panicked").
					WithDetails(map[string]any{"operation": r.Method + " " + r.URL.Path})
				if tracked.wrote {
					if logg != nil {
						logg.Error(r.Context(), "panic after response started", err)
					}
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
			}()
			next.ServeHTTP(tracked, r)
		})
	}
}

type wroteTracker struct {
	http.ResponseWriter
	wrote bool
}

func (t *wroteTracker) WriteHeader(code int) {
	t.wrote = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *wroteTracker) Write(b []byte) (int, error) {
	t.wrote = true
	return t.ResponseWriter.Write(b)
}
