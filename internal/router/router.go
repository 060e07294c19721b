package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"conversa-backend/internal/handlers"
	"conversa-backend/internal/middleware"
)

type Deps struct {
	JWTAuth     *middleware.JWTAuth
	AuthHandler *handlers.AuthHandler
	ChatHandler *handlers.ChatHandler
	// WebSocket is optional; the route is only mounted when set.
	WebSocket   http.HandlerFunc
	AuthLimiter *middleware.RateLimiter
	FrontendURL string
	Logger      *zap.Logger
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(corsOptions(d.FrontendURL)))

	authLimiter := d.AuthLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(10, time.Minute)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Conversa API is Running..."))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/signup", d.AuthHandler.Signup)
			r.Post("/login", d.AuthHandler.Login)
			r.Post("/refresh", d.AuthHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(d.JWTAuth.Middleware)
				r.Post("/logout", d.AuthHandler.Logout)
			})
		})

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(d.JWTAuth.Middleware)
			r.Post("/send", d.ChatHandler.Send)
			r.Get("/history", d.ChatHandler.History)
			r.Get("/{id}", d.ChatHandler.Get)
		})

		// ──── WebSocket ────
		if d.WebSocket != nil {
			r.Get("/ws", d.WebSocket)
		}
	})

	return r
}

func corsOptions(frontendURL string) cors.Options {
	origins := []string{"*"}
	if frontendURL != "" && frontendURL != "*" {
		origins = strings.Split(frontendURL, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: origins[0] != "*",
		MaxAge:           300,
	}
}
