package middleware

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/mux"

	"github.com/bullsai/watchlist/internal/models"
	"github.com/bullsai/watchlist/internal/utils"
)

// AuthMiddleware checks for valid JWT token and adds the user id to context.
// Browsers cannot set headers on websocket upgrades, so the token may also
// arrive in the "token" query parameter.
func AuthMiddleware(jwtSecretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			// Parse and validate the token
			claims := &models.Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return jwtSecretKey, nil
			})
			if err != nil || !token.Valid || claims.UserID == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := utils.SetUserIDToContext(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		const prefix = "Bearer "
		if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
			return strings.TrimSpace(header[len(prefix):])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireSameUser rejects requests whose {userId} route variable differs from
// the authenticated user.
func RequireSameUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authUserID, err := utils.GetUserIDFromContext(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if mux.Vars(r)["userId"] != authUserID {
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
