package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/pure-golang/emails/logger"
)

// Recovery turns a handler panic into a 500 response and logs it with
// the stack at ERROR level.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			var stack []string
			for _, line := range strings.Split(string(debug.Stack()), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					stack = append(stack, line)
				}
			}

			logger.FromContext(r.Context()).
				With("panic", err).
				With("stack", stack).
				Error("panic recovered in mail api handler")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
