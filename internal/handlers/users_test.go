package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hachizeus/anzia-auth/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRouter(env *testEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(auth.Middleware(env.tokens))
	r.Get("/users/{id}", env.userHandler.GetUser)
	r.Put("/users/{id}", env.userHandler.UpdateUser)
	return r
}

func TestGetUser_Self(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.addUser(t, "valid@example.com", "Correct1password")
	token, err := env.tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/users/"+user.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	userRouter(env).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "valid@example.com", resp["email"])
}

func TestGetUser_OtherUserForbidden(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.addUser(t, "valid@example.com", "Correct1password")
	other := env.repo.addUser(t, "other@example.com", "Correct1password")

	token, err := env.tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/users/"+other.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	userRouter(env).ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUser_AdminMayReadAnyone(t *testing.T) {
	env := newTestEnv(t)
	admin := env.repo.addUser(t, "admin@example.com", "Correct1password")
	admin.Role = "admin"
	other := env.repo.addUser(t, "other@example.com", "Correct1password")

	token, err := env.tokens.Issue(admin)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/users/"+other.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	userRouter(env).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.addUser(t, "valid@example.com", "Correct1password")
	token, err := env.tokens.Issue(user)
	require.NoError(t, err)

	body, err := json.Marshal(UpdateUserRequest{Name: "Renamed"})
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/users/"+user.ID, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	userRouter(env).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Renamed", resp["name"])
}

func TestUpdateUser_EmptyNameRejected(t *testing.T) {
	env := newTestEnv(t)
	user := env.repo.addUser(t, "valid@example.com", "Correct1password")
	token, err := env.tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/users/"+user.ID, bytes.NewReader([]byte(`{"name":""}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	userRouter(env).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
