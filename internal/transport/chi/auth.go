package chi

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geofeed/internal/logger"
)

type userKey struct{}

// WithUser stores the authenticated user id in the context.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user id, or "" when the request
// is anonymous.
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// JWTAuthMiddleware returns a middleware that requires an HS256 bearer token
// and puts its subject into the request context. The issuer is checked only
// when non-empty.
func JWTAuthMiddleware(secret, issuer string) func(http.Handler) http.Handler {
	key := []byte(secret)
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header", "")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization header must use Bearer scheme", "")
				return
			}

			var claims jwt.RegisteredClaims
			_, err := parser.ParseWithClaims(auth[len(bearerPrefix):], &claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil {
				logger.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token", "")
				return
			}
			if claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "token has no subject", "")
				return
			}

			ctx := WithUser(r.Context(), claims.Subject)
			ctx = logger.With(ctx, zap.String("user_id", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
