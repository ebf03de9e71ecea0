package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vncsmyrnk/ballotbox/internal/core/ports"
	"github.com/vncsmyrnk/ballotbox/internal/logging"
)

type Handlers struct {
	Auth  *AuthHandler
	Users *UserHandler
	Polls *PollHandler
	Votes *VoteHandler
	Shell *ShellHandler
}

func NewHandler(h Handlers, authService ports.AuthService, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logging.For("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Auth.Login)
		r.Post("/google/callback", h.Auth.GoogleCallback)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate(authService))

		r.Get("/me", h.Users.GetMe)
		r.Get("/apps", h.Shell.Apps)
		r.Get("/blogs", h.Shell.Blogs)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", h.Polls.Overview)
			r.Post("/reopen", h.Polls.Reopen)
			r.Post("/vote-randomly", h.Votes.VoteRandomly)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Polls.Detail)
				r.Post("/votes", h.Votes.VoteOnPoll)
				r.Get("/progress", h.Polls.Progress)
				r.Get("/results", h.Polls.Results)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireStaff)

			r.Get("/polls", h.Polls.Search)
			r.Post("/polls", h.Polls.CreatePoll)
			r.Post("/polls/{id}/choices", h.Polls.AddChoice)
			r.Post("/polls/{id}/voters", h.Polls.RegisterVoters)
			r.Get("/polls/{id}/eligible-voters", h.Polls.EligibleVoters)
			r.Post("/users", h.Users.CreateUser)
		})
	})

	return r
}
