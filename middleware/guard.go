package middleware

import (
	"context"
	"net/http"
	"strings"

	cineauth "github.com/cinemate/cineauth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validation result injected by [Guard].
func AuthResultFromContext(ctx context.Context) (*cineauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*cineauth.AuthResult)
	return res, ok
}

// Guard rejects requests without a valid bearer token. Both the token
// signature and the referenced session are checked on every request.
func Guard(engine *cineauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
