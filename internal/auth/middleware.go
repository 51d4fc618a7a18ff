package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const CanvasIDKey contextKey = "canvasID"

// AuthMiddleware requires a Bearer token and, when the route has a
// {canvasId} variable, that the token was issued for that canvas.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
			return
		}

		canvasID, err := s.ValidateToken(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		if want, ok := mux.Vars(r)["canvasId"]; ok && want != canvasID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "token not valid for this canvas"})
			return
		}

		ctx := context.WithValue(r.Context(), CanvasIDKey, canvasID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CanvasIDFromContext(ctx context.Context) string {
	canvasID, _ := ctx.Value(CanvasIDKey).(string)
	return canvasID
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
