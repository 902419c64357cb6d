package middleware

import (
	"net"
	"net/http"
	"strings"

	"jdbuilder/pkg/auth"
	"jdbuilder/pkg/common"
)

// AuthConfig configures the authentication middleware.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	Audience  []string
}

// Authenticate validates the Bearer token on every request and stores the
// authenticated user in the request context. IP and per-user rate limits
// are applied here as well so unauthenticated floods are shed early.
func Authenticate(cfg AuthConfig) func(next http.Handler) http.Handler {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.Audience,
	})
	if err != nil {
		// Misconfigured secret: refuse everything rather than run open.
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				common.RespondError(w, http.StatusUnauthorized, "authentication system error", "")
			})
		}
	}

	ipLimiter := auth.NewIPRateLimiter(100)
	userLimiter := auth.NewUserRateLimiter(200)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, _ := ipLimiter.Allow(r.Context(), clientIP(r))
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.RespondError(w, http.StatusUnauthorized, "missing authorization header", "")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				common.RespondError(w, http.StatusUnauthorized, "invalid authorization header format", "")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				switch err {
				case auth.ErrExpiredToken:
					common.RespondError(w, http.StatusUnauthorized, "token has expired", "")
				case auth.ErrInvalidSignature:
					common.RespondError(w, http.StatusUnauthorized, "invalid token signature", "")
				default:
					common.RespondError(w, http.StatusUnauthorized, "invalid token", "")
				}
				return
			}

			allowed, _ = userLimiter.Allow(r.Context(), claims.UserID)
			if !allowed {
				common.RespondError(w, http.StatusTooManyRequests, "user rate limit exceeded", "")
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
