package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ride-dispatch/internal/dispatch-service/adapters/driver/myhttp/handle"

	"github.com/golang-jwt/jwt"
)

type AuthMiddleware struct {
	accessSecret string
}

func NewAuthMiddleware(accessSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		accessSecret: accessSecret,
	}
}

// Wrap verifies the bearer token and forwards the resolved identity to the
// handler via the X-UserId and X-Role headers.
func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("empty JWT-Token"))
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return []byte(am.accessSecret), nil
		})
		if err != nil {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("failed to parse JWT-Token"))
			return
		}

		if !token.Valid {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid JWT-Token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid claims"))
			return
		}

		userID, ok := numericClaim(claims, "user_id")
		if !ok {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("user_id not found in token"))
			return
		}

		role, ok := claims["role"].(string)
		if !ok {
			handle.JsonError(w, http.StatusUnauthorized, fmt.Errorf("role not found in token"))
			return
		}

		r.Header.Set("X-UserId", strconv.FormatInt(userID, 10))
		r.Header.Set("X-Role", role)

		next.ServeHTTP(w, r)
	})
}

// WrapRole is Wrap plus a role gate for the driver-only transition routes.
func (am *AuthMiddleware) WrapRole(role string, next http.Handler) http.Handler {
	return am.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Role") != role {
			handle.JsonError(w, http.StatusForbidden, fmt.Errorf("only %ss are allowed to use this route", role))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// numericClaim accepts the id either as a JSON number or a string, since both
// shapes circulate between the token issuers.
func numericClaim(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
