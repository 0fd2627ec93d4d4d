package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"propchat/internal/entity"
	"propchat/internal/usecase"
	appErrors "propchat/pkg/errors"
	"propchat/pkg/jwt"
	"propchat/pkg/logger"
	"propchat/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
	PartyContextKey  contextKey = "party"
)

var (
	errMissingToken = appErrors.Unauthorized("authorization header required")
	errInvalidToken = appErrors.Unauthorized("invalid or expired token")
	errNoResident   = appErrors.Forbidden("account has no resident profile")
)

type TokenValidator interface {
	ValidateAccessToken(token string) (*entity.TokenClaims, error)
}

type AuthMiddleware struct {
	tokens  TokenValidator
	parties usecase.PartyResolver
	log     *logger.Logger
}

func NewAuthMiddleware(tokens TokenValidator, parties usecase.PartyResolver, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.Global()
	}
	return &AuthMiddleware{
		tokens:  tokens,
		parties: parties,
		log:     log,
	}
}

// Authenticate validates the bearer token and stores its claims in the context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := jwt.FromRequest(r)
		if token == "" {
			writeError(w, r, m.log, errMissingToken)
			return
		}

		claims, err := m.tokens.ValidateAccessToken(token)
		if err != nil {
			writeError(w, r, m.log, errInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveParty maps the authenticated account to its resident party. Must run
// after Authenticate.
func (m *AuthMiddleware) ResolveParty(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, r, m.log, errMissingToken)
			return
		}

		partyId, err := m.parties.Resolve(r.Context(), claims.UserId)
		if err != nil {
			if errors.Is(err, usecase.ErrPartyNotFound) {
				err = errNoResident
			}
			writeError(w, r, m.log, err)
			return
		}

		ctx := context.WithValue(r.Context(), PartyContextKey, partyId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) *entity.TokenClaims {
	claims, _ := ctx.Value(ClaimsContextKey).(*entity.TokenClaims)
	return claims
}

func PartyIdFromContext(ctx context.Context) string {
	partyId, _ := ctx.Value(PartyContextKey).(string)
	return partyId
}

// RequestLogger logs every request with its correlation id and feeds the
// request metrics.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			metrics.RecordRequest(r.Method, route, strconv.Itoa(status), elapsed.Seconds())
			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
			)
		})
	}
}
