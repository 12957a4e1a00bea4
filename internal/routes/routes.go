package routes

import (
	"github.com/dmcallister-dev/medgate/internal/auth"
	"github.com/dmcallister-dev/medgate/internal/handlers"
	"github.com/dmcallister-dev/medgate/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	attemptsHandler *handlers.AttemptsHandler,
	lockoutsHandler *handlers.LockoutsHandler,
	emergencyHandler *handlers.EmergencyHandler,
	auditHandler *handlers.AuditHandler,
	tokenManager *auth.TokenManager,
	validateRateLimit middleware.RateLimitConfig,
) {
	// Platform-facing routes. The caller is the authentication flow itself,
	// inside the private network; transport-level trust applies.
	router.Post("/v1/attempts/check", attemptsHandler.CheckAttempt)
	router.Post("/v1/attempts", attemptsHandler.RecordAttempt)

	// Emergency validation gets its own tight per-IP ceiling on top of the
	// global limiter.
	router.With(middleware.RateLimitByIP(validateRateLimit)).
		Post("/v1/emergency-codes/validate", emergencyHandler.ValidateCode)

	// Admin-only ops routes
	router.Group(func(r chi.Router) {
		r.Use(auth.AdminAuthMiddleware(tokenManager))
		r.Use(auth.RequireRole(auth.RoleAdmin))

		r.Get("/v1/lockouts/{type}/{identifier}", lockoutsHandler.GetLockout)
		r.Delete("/v1/lockouts/{type}/{identifier}", lockoutsHandler.ClearLockout)
		r.Post("/v1/emergency-codes", emergencyHandler.IssueCode)
		r.Get("/v1/audit/users/{id}", auditHandler.GetUserAuditTrail)
	})
}
