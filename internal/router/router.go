package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"contacts-api/internal/config"
	"contacts-api/internal/handler"
	"contacts-api/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	subject middleware.SubjectFunc,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	contactHandler *handler.ContactHandler,
) http.Handler {
	r := chi.NewRouter()
	apiLimiter := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, subject)
	authLimiter := middleware.NewRateLimitMiddleware(cfg.AuthRateLimitRPM, subject)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/", healthHandler.Index)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Get("/healthchecker", healthHandler.Healthchecker)

		api.Route("/auth", func(auth chi.Router) {
			auth.With(authLimiter.Limit).Post("/signup", authHandler.Signup)
			auth.With(authLimiter.Limit).Post("/login", authHandler.Login)
			auth.Get("/refresh_token", authHandler.Refresh)
			auth.Get("/confirmed_email/{token}", authHandler.ConfirmedEmail)
			auth.With(authLimiter.Limit).Post("/request_email", authHandler.RequestEmail)
			auth.With(authLimiter.Limit).Post("/forgot_password", authHandler.ForgotPassword)
			auth.Post("/reset_password/{token}", authHandler.ResetPassword)
			auth.With(authMiddleware.RequireAuth).Patch("/password", authHandler.ChangePassword)
		})

		api.With(authMiddleware.RequireAuth).Get("/users/me", userHandler.Me)

		api.Route("/contacts", func(contacts chi.Router) {
			contacts.Use(authMiddleware.RequireAuth)

			contacts.With(apiLimiter.Limit).Get("/", contactHandler.List)
			contacts.With(apiLimiter.Limit).Post("/", contactHandler.Create)
			contacts.Get("/birthday", contactHandler.Birthdays)
			contacts.Get("/{contactID}", contactHandler.Get)
			contacts.Put("/{contactID}", contactHandler.Update)
			contacts.Delete("/{contactID}", contactHandler.Delete)
		})
	})

	return r
}
