package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"scratchcard/internal/interfaces"
	"scratchcard/internal/models"
	"scratchcard/internal/pkg/limiter"
	"scratchcard/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
	log "github.com/sirupsen/logrus"
)

type ctxKey string

var ctxKeyAuthUser ctxKey = "AUTH_USER"
var ctxKeyUser ctxKey = "USER"

var (
	errUnauthenticated = errors.New("missing session")
	errInvalidToken    = errors.New("invalid access token")
)

// Authn will NOT terminate an unauthenticated request, handlers decide.
func Authn(verifier interface {
	Validate(token string) (*models.UserFromAuth, error)
},
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			parts := strings.Split(header, "Bearer")
			if len(parts) != 2 {
				return next(c)
			}

			token := strings.TrimSpace(parts[1])
			if len(token) == 0 {
				return next(c)
			}

			user, err := verifier.Validate(token)
			if err != nil {
				// although it's a client error, we don't want to detailed information
				log.WithError(err).Debug("token rejected")
				return restAbort(c, nil, errInvalidToken)
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ctxKeyAuthUser, user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func ResolveValidUser(ctx context.Context, container *do.Injector) (*models.User, error) {
	if user, ok := ctx.Value(ctxKeyUser).(*models.User); ok {
		return user, nil
	}

	userAuth, ok := ctx.Value(ctxKeyAuthUser).(*models.UserFromAuth)
	if !ok {
		return nil, errUnauthenticated
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](container)
	if err != nil {
		return nil, err
	}

	return serviceUser.FindOrCreateUser(ctx, userAuth)
}

// RequireAdmin terminates requests whose user does not carry the admin role.
func RequireAdmin(container *do.Injector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := ResolveValidUser(c.Request().Context(), container)
			if err != nil {
				return restAbort(c, nil, err)
			}
			if !user.IsAdmin() {
				return restAbort(c, nil, services.ErrForbidden)
			}

			ctx := context.WithValue(c.Request().Context(), ctxKeyUser, user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RateLimit counts requests per key. An empty key skips the check and a
// limiter outage lets the request through.
func RateLimit(l interfaces.Limiter, key func(c echo.Context) string, limit redis_rate.Limit) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			k := key(c)
			if k == "" {
				return next(c)
			}

			err := l.Allow(c.Request().Context(), k, limit)
			if errors.Is(err, limiter.ErrRateLimited) {
				return restAbort(c, nil, err)
			}
			if err != nil {
				log.WithError(err).WithField("key", k).Warn("rate limiter unavailable")
			}
			return next(c)
		}
	}
}

func userKey(build func(userID string) string) func(c echo.Context) string {
	return func(c echo.Context) string {
		user, ok := c.Request().Context().Value(ctxKeyAuthUser).(*models.UserFromAuth)
		if !ok {
			return ""
		}
		return build(user.ID)
	}
}

func ipKey(build func(ip string) string) func(c echo.Context) string {
	return func(c echo.Context) string {
		return build(c.RealIP())
	}
}

// WebhookSecret checks the shared secret the payment provider sends.
func WebhookSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get("X-Webhook-Secret")
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return restAbort(c, nil, errUnauthenticated)
			}
			return next(c)
		}
	}
}
