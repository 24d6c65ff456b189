package rbac

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-cms/chronicle/internal/permission"
	"github.com/chronicle-cms/chronicle/internal/platform/cache"
	"github.com/chronicle-cms/chronicle/internal/shared"
)

type stubSource struct {
	users map[int64]*permission.User
	err   error
	calls int
}

func (s *stubSource) UserWithPermissions(_ context.Context, userID int64) (*permission.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func testMiddleware(t *testing.T, source *stubSource) Middleware {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Middleware{
		Source: source,
		Cache:  cache.NewPrincipalCache(client, time.Minute),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func requestWithSessionUser(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/articles", nil)
	sess := &shared.Session{}
	sess.SetUser(userID)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAllowsGrantedUser(t *testing.T) {
	source := &stubSource{users: map[int64]*permission.User{
		12: {ID: 12, Role: permission.Role{Name: "Author", Permissions: []string{"article.CREATE"}}},
	}}
	m := testMiddleware(t, source)

	rec := httptest.NewRecorder()
	m.Require("article.CREATE")(okHandler()).ServeHTTP(rec, requestWithSessionUser("12"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireDeniesMissingGrant(t *testing.T) {
	source := &stubSource{users: map[int64]*permission.User{
		12: {ID: 12, Role: permission.Role{Name: "Author", Permissions: []string{"article.CREATE"}}},
	}}
	m := testMiddleware(t, source)

	rec := httptest.NewRecorder()
	m.Require("journalissue.DELETE")(okHandler()).ServeHTTP(rec, requestWithSessionUser("12"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), permission.ReasonInsufficient)
}

func TestRequireWithoutSessionIsUnauthorized(t *testing.T) {
	m := testMiddleware(t, &stubSource{})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/articles", nil)
	m.Require("article.READ")(okHandler()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Any-of routes answer anonymous requests the same way, not with a
	// forbidden response.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/articles", nil)
	m.RequireAny("article.CREATE", "article.UPDATE")(okHandler()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHydrationErrorReadsAsDenial(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	m := testMiddleware(t, source)

	rec := httptest.NewRecorder()
	m.Require("article.READ")(okHandler()).ServeHTTP(rec, requestWithSessionUser("12"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// Internal cause must not leak to the client.
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestPrincipalIsCachedAcrossRequests(t *testing.T) {
	source := &stubSource{users: map[int64]*permission.User{
		12: {ID: 12, Role: permission.Role{Name: "Author", Permissions: []string{"article.CREATE"}}},
	}}
	m := testMiddleware(t, source)
	handler := m.Require("article.CREATE")(okHandler())

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithSessionUser("12"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, source.calls, "second and third requests must hit the cache")
}

func TestRequireAnyAndAll(t *testing.T) {
	source := &stubSource{users: map[int64]*permission.User{
		12: {ID: 12, Role: permission.Role{Name: "Author", Permissions: []string{"article.UPDATE"}}},
	}}
	m := testMiddleware(t, source)

	rec := httptest.NewRecorder()
	m.RequireAny("article.CREATE", "article.UPDATE")(okHandler()).ServeHTTP(rec, requestWithSessionUser("12"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	m.RequireAll("article.UPDATE", "article.DELETE")(okHandler()).ServeHTTP(rec, requestWithSessionUser("12"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPrincipalStoredInContext(t *testing.T) {
	source := &stubSource{users: map[int64]*permission.User{
		12: {ID: 12, Role: permission.Role{Name: "Author", Permissions: []string{"article.CREATE"}}},
	}}
	m := testMiddleware(t, source)

	var seen *permission.User
	handler := m.RequireAuthenticated()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionUser("12"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(12), seen.ID)
}

func TestEffectivePermissionsEndpoint(t *testing.T) {
	source := &stubSource{users: map[int64]*permission.User{
		12: {ID: 12, Role: permission.Role{Name: "Author", Permissions: []string{"article.CREATE", "article.READ"}}, DirectPermissions: []string{"article.READ"}},
	}}
	m := testMiddleware(t, source)
	h := NewPermissionsHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), m)

	r := chi.NewRouter()
	r.Route("/api/permissions", h.MountRoutes)

	rec := httptest.NewRecorder()
	req := requestWithSessionUser("12")
	req.URL.Path = "/api/permissions/effective"
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"article.CREATE"`)
	assert.Contains(t, body, `"role":"Author"`)
	// Deduplicated: the direct duplicate of article.READ appears once.
	assert.Equal(t, 1, strings.Count(body, `"article.READ"`))
}
