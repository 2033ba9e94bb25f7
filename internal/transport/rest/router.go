package rest

import (
	"net/http"
	"slices"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/swaggo/swag"

	_ "github.com/kstielfps/VATImposter/docs"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/service"
	"github.com/kstielfps/VATImposter/internal/transport/rest/handler"
	"github.com/kstielfps/VATImposter/internal/transport/rest/middleware"
	"github.com/kstielfps/VATImposter/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	RoomService    *service.RoomService
	GameService    *service.GameService
	WSHub          *ws.Hub
	RoomDefaults   model.RoomConfig
	AllowedOrigins []string
	PublicBaseURL  string
	Debug          bool
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService, c.GameService, c.RoomDefaults, c.Debug)
	qrHandler := handler.NewQRHandler(c.GameService, c.PublicBaseURL, c.Debug)
	wsHandler := ws.NewHandler(c.WSHub, c.RoomService, c.GameService, c.AllowedOrigins, c.Debug)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.RoomService)

	r.Use(chimw.RequestID, chimw.RealIP, requestLogger, chimw.Recoverer)
	r.Use(corsMiddleware(c.AllowedOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	// WebSocket (token in query param, none for spectators)
	r.HandleFunc("/ws/{code}", wsHandler.Room).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/qr.png", qrHandler.Join).Methods("GET", "OPTIONS")

	// State is public, richer with a token
	viewRoutes := v1.NewRoute().Subrouter()
	viewRoutes.Use(authMW.OptionalParticipant)
	viewRoutes.HandleFunc("/rooms/{code}/state", roomHandler.State).Methods("GET", "OPTIONS")

	// Participant routes (require a token for this room)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequireParticipant)

	playerRoutes.HandleFunc("/rooms/{code}/configure", roomHandler.Configure).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/start", roomHandler.Start).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/hint", roomHandler.Hint).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/vote", roomHandler.Vote).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/clown-guess", roomHandler.ClownGuess).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/chaos-power", roomHandler.ChaosPower).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/nudge", roomHandler.Nudge).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/nudges/ack", roomHandler.AckNudges).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/restart", roomHandler.Restart).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/kick", roomHandler.Kick).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/rooms/{code}/close", roomHandler.Close).Methods("POST", "OPTIONS")

	return r
}

// requestLogger writes one zerolog line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	wildcard := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case wildcard:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
