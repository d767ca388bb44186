package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/models"
	"DataLink.piwebapi/internal/utils"
)

// jwksCacheTTL is how long fetched signing keys are reused.
const jwksCacheTTL = 5 * time.Minute

// NewJWTMiddleware guards handlers with Auth0 access tokens. When cfg is not
// enabled the returned middleware lets every request through.
func NewJWTMiddleware(cfg config.Auth0Config, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	issuerURL, err := url.Parse(cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("parsing Auth0 issuer: %w", err)
	}
	var provider *jwks.CachingProvider
	if cfg.JWKSURL != "" {
		jwksURL, err := url.Parse(cfg.JWKSURL)
		if err != nil {
			return nil, fmt.Errorf("parsing Auth0 JWKS URL: %w", err)
		}
		provider = jwks.NewCachingProvider(issuerURL, jwksCacheTTL, jwks.WithCustomJWKSURI(jwksURL))
	} else {
		provider = jwks.NewCachingProvider(issuerURL, jwksCacheTTL)
	}

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.JWTAudience},
	)
	if err != nil {
		return nil, fmt.Errorf("setting up JWT validator: %w", err)
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Info("JWT authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
			apiErr := models.NewAPIError(models.ErrorCodeUnauthorized, "Invalid or missing access token", nil, http.StatusUnauthorized)
			utils.RespondWithError(w, apiErr)
		}),
	)
	return mw.CheckJWT, nil
}

// Subject returns the authenticated token subject, or "" for anonymous
// requests.
func Subject(ctx context.Context) string {
	claims, ok := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok || claims == nil {
		return ""
	}
	return claims.RegisteredClaims.Subject
}
