package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/transport/apierr"
)

type contextKey string

const (
	ParticipantIDKey contextKey = "participantId"
	RoomCodeKey      contextKey = "roomCode"
)

// Authenticator resolves a bearer token for a room. *service.RoomService
// implements it.
type Authenticator interface {
	Authenticate(code, token string) (*model.ParticipantClaims, error)
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireParticipant validates a room-scoped participant token from the
// Authorization header. The token's room must match the {code} path var.
func (m *AuthMiddleware) RequireParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			deny(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		claims, err := m.auth.Authenticate(mux.Vars(r)["code"], token)
		if err != nil {
			deny(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// OptionalParticipant attaches the participant when a valid token is sent
// and lets the request through anonymously otherwise.
func (m *AuthMiddleware) OptionalParticipant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractBearerToken(r); token != "" {
			claims, err := m.auth.Authenticate(mux.Vars(r)["code"], token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			r = r.WithContext(withClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func withClaims(ctx context.Context, claims *model.ParticipantClaims) context.Context {
	ctx = context.WithValue(ctx, ParticipantIDKey, claims.ParticipantID)
	return context.WithValue(ctx, RoomCodeKey, claims.RoomCode)
}

// GetParticipantID extracts participant ID from context
func GetParticipantID(ctx context.Context) string {
	if v := ctx.Value(ParticipantIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetRoomCode extracts room code from context
func GetRoomCode(ctx context.Context) string {
	if v := ctx.Value(RoomCodeKey); v != nil {
		return v.(string)
	}
	return ""
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apierr.Envelope{Error: apierr.Body{Kind: game.KindUnauthorized, Message: message}})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
