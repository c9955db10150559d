package handler

import (
	"net/http"
	"time"

	"class-election/internal/middleware"
	"class-election/internal/service"
	"class-election/pkg/logger"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Sessions issues and validates voter and auditor sessions.
type Sessions interface {
	SessionIssuer
	middleware.SessionValidator
}

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Services       *service.Services
	Sessions       Sessions
	LoginLimiter   *middleware.IPRateLimiter
	AllowedOrigins []string
	Health         *HealthHandler
	Logger         *logger.Logger

	// Now overrides the clock of every handler when set.
	Now func() time.Time
}

// NewRouter configures and returns the HTTP router
func NewRouter(deps RouterDeps) *chi.Mux {
	log := deps.Logger
	services := deps.Services

	authHandler := NewAuthHandler(services.Voters, services.Settings, deps.Sessions, log)
	votingHandler := NewVotingHandler(services.Ballots, services.Results, services.Voters, log)
	resultsHandler := NewResultsHandler(services.Results, deps.AllowedOrigins, log)
	adminHandler := NewAdminHandler(services, log)
	if deps.Now != nil {
		votingHandler.now = deps.Now
		resultsHandler.now = deps.Now
		adminHandler.now = deps.Now
	}

	if deps.LoginLimiter == nil {
		deps.LoginLimiter = middleware.NewIPRateLimiter(20, 5)
	}
	loginLimit := middleware.RateLimit(deps.LoginLimiter, log)
	voterAuth := middleware.VoterAuth(deps.Sessions, log)
	auditorAuth := middleware.AuditorAuth(deps.Sessions, log)

	r := chi.NewRouter()

	r.Use(middleware.CORS(middleware.NewCORSConfig(deps.AllowedOrigins), log))
	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	if deps.Health != nil {
		r.Get("/health", deps.Health.Check)
	}

	// Websocket stays outside Compress and Timeout.
	r.Get("/ws/live-results", resultsHandler.LiveResultsSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Compress(5))
		r.Use(chiMiddleware.Timeout(60 * time.Second))

		// Public endpoints
		r.Get("/status", resultsHandler.Status)
		r.Get("/results/live", resultsHandler.LiveResults)
		r.Get("/results/final", resultsHandler.FinalResults)
		r.With(loginLimit).Post("/auth/login", authHandler.VoterLogin)

		// Voter endpoints
		r.Group(func(r chi.Router) {
			r.Use(voterAuth)

			r.Get("/ballot", votingHandler.GetBallot)
			r.Post("/votes", votingHandler.SubmitVotes)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(loginLimit).Post("/login", authHandler.AuditorLogin)

			r.Group(func(r chi.Router) {
				r.Use(auditorAuth)

				r.Get("/audit", adminHandler.AuditTrail)
				r.Get("/settings", adminHandler.GetSettings)
				r.Put("/settings", adminHandler.UpdateSettings)
				r.Get("/voters/export", adminHandler.ExportVoters)
				r.Post("/voters/import", adminHandler.ImportVoters)
				r.Post("/voters/{id}/reset", adminHandler.ResetVoter)
				r.Post("/candidates/import", adminHandler.ImportCandidates)
				r.Post("/candidates/{id}/photo", adminHandler.UploadPhoto)
				r.Delete("/candidates/{id}/photo", adminHandler.DeletePhoto)
				r.Put("/candidates/{id}/active", adminHandler.SetCandidateActive)
				r.Post("/positions", adminHandler.CreatePosition)
				r.Put("/positions/{id}/active", adminHandler.SetPositionActive)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
