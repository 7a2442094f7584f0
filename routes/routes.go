package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/quiz-tournament/handlers"
	"github.com/Dosada05/quiz-tournament/middleware"
)

// SetupRoutes wires the full HTTP surface. Player routes are open; every
// mutating tournament operation sits behind owner authentication.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	teamHandler *handlers.TeamHandler,
	playerHandler *handlers.PlayerHandler,
	matchHandler *handlers.MatchHandler,
	tournamentHandler *handlers.TournamentHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/ws", webSocketHandler.ServeWs)

	router.Post("/auth/login", authHandler.Login)

	router.Route("/teams", func(r chi.Router) {
		r.Get("/", teamHandler.List)
		r.Get("/{teamID}", teamHandler.Get)
		r.Get("/{teamID}/roster", teamHandler.Roster)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireOwner)

			r.Post("/", teamHandler.Create)
			r.Delete("/{teamID}", teamHandler.Deactivate)
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Post("/", playerHandler.Register)
		r.Get("/{playerID}", playerHandler.Profile)
		r.Post("/{playerID}/team", playerHandler.JoinTeam)
		r.Delete("/{playerID}/team", playerHandler.LeaveTeam)
		r.Put("/{playerID}/lang", playerHandler.SetLang)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.List)
		r.Get("/{matchID}", matchHandler.Get)
		r.Post("/{matchID}/answers", matchHandler.SubmitAnswer)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireOwner)

			r.Post("/{matchID}/start", matchHandler.Start)
			r.Post("/{matchID}/finalize", matchHandler.Finalize)
			r.Get("/{matchID}/questions", matchHandler.Questions)
			r.Put("/{matchID}/schedule", matchHandler.Schedule)
			r.Delete("/{matchID}/schedule", matchHandler.Unschedule)
		})
	})

	router.Route("/tournament", func(r chi.Router) {
		r.Get("/phase", tournamentHandler.Phase)
		r.Get("/standings", tournamentHandler.Standings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireOwner)

			r.Post("/start", tournamentHandler.Start)
			r.Post("/advance", tournamentHandler.Advance)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.RequireOwner)

		r.Post("/broadcast", adminHandler.Broadcast)
		r.Post("/backup", adminHandler.Backup)
	})
}
