package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/models"
)

var teapot = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestJWTMiddlewareDisabledPassesThrough(t *testing.T) {
	mw, err := NewJWTMiddleware(config.Auth0Config{}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mw(teapot).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	mw, err := NewJWTMiddleware(config.Auth0Config{
		JWTIssuer:   "https://tenant.example.com/",
		JWTAudience: "https://datalink.example.com",
	}, nil)
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		mw(teapot).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		var apiErr models.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, models.ErrorCodeUnauthorized, apiErr.Code)
	}
}

func TestJWTMiddlewareBadIssuer(t *testing.T) {
	_, err := NewJWTMiddleware(config.Auth0Config{JWTIssuer: "://bad", JWTAudience: "aud"}, nil)
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Empty(t, Subject(context.Background()))

	claims := &validator.ValidatedClaims{RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|42"}}
	ctx := context.WithValue(context.Background(), jwtmiddleware.ContextKey{}, claims)
	assert.Equal(t, "auth0|42", Subject(ctx))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(teapot)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/query/fetch", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/query/fetch", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}
