package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tokenFor(t *testing.T, svc *auth.Service, role models.Role) string {
	t.Helper()
	token, err := svc.GenerateToken(&models.User{
		ID:       primitive.NewObjectID(),
		Username: string(role) + "1",
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := auth.NewService("s3cret", time.Hour)
	middleware := NewAuthMiddleware(authService)

	t.Run("valid token", func(t *testing.T) {
		token := tokenFor(t, authService, models.RoleDispatcher)
		req := httptest.NewRequest("GET", "/api/trips", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetUserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "dispatcher1", claims.Username)
			assert.Equal(t, models.RoleDispatcher, claims.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing authorization header", "", "no token provided"},
		{"wrong scheme", "Basic abc", "no token provided"},
		{"invalid token", "Bearer invalid-token", "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/trips", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.False(t, handlerCalled)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"success": false, "error": "`+tt.want+`"}`, w.Body.String())
		})
	}
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	authService := auth.NewService("s3cret", time.Hour)
	middleware := NewAuthMiddleware(authService)

	tests := []struct {
		name   string
		role   models.Role
		action string
		want   int
	}{
		{"manager seeds data", models.RoleManager, models.ActionSeedData, http.StatusOK},
		{"dispatcher manages trips", models.RoleDispatcher, models.ActionManageTrips, http.StatusOK},
		{"dispatcher cannot manage vehicles", models.RoleDispatcher, models.ActionManageVehicles, http.StatusForbidden},
		{"analyst views analytics", models.RoleAnalyst, models.ActionViewAnalytics, http.StatusOK},
		{"analyst cannot manage trips", models.RoleAnalyst, models.ActionManageTrips, http.StatusForbidden},
		{"unknown role cannot view fleet", models.Role("viewer"), models.ActionViewFleet, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/anything", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.role))
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(middleware.RequirePermission(tt.action)(handler)).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, handlerCalled)
		})
	}

	t.Run("without authentication", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		middleware.RequirePermission(models.ActionViewFleet)(handler).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{
		UserID:   "test-id",
		Username: "testuser",
		Role:     models.RoleManager,
	}

	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	retrievedClaims, ok := GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, retrievedClaims)

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()

	h := chimw.RequestID(RequestLogger(log.NewEntry(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/trips/abc", nil))

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, 404, entry.Data["status"])
	assert.Equal(t, "/api/trips/abc", entry.Data["path"])
	assert.NotEmpty(t, entry.Data["request_id"])
}
