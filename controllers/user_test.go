package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webguard/services"
)

func TestUsersRequireAdmin(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	resp := app.do(t, c, http.MethodGet, "/users", "", jsonHeader(""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err := app.users.RegisterUser(t.Context(), &services.CreateUserInput{Username: "bob", Password: "secret"})
	require.NoError(t, err)
	bobToken := app.login(t, "bob", "secret")

	resp = app.do(t, c, http.MethodGet, "/users", "", jsonHeader(bobToken))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// bob may still see the pages open to ROLE_USER.
	resp = app.do(t, c, http.MethodGet, "/index", "", jsonHeader(bobToken))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateUser(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	token := app.login(t, "admin", "admin")

	t.Run("Success", func(t *testing.T) {
		resp := app.do(t, c, http.MethodPost, "/users", `{"username":"testuser1","password":"password"}`, jsonHeader(token))
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var created UserResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
		assert.Equal(t, "testuser1", created.Username)
		assert.Equal(t, []string{"ROLE_USER"}, created.Roles)

		// The new user can log in with the raw password.
		assert.NotEmpty(t, app.login(t, "testuser1", "password"))
	})

	t.Run("Username already exists", func(t *testing.T) {
		resp := app.do(t, c, http.MethodPost, "/users", `{"username":"admin","password":"password"}`, jsonHeader(token))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Unknown role", func(t *testing.T) {
		resp := app.do(t, c, http.MethodPost, "/users", `{"username":"x","password":"y","roles":["ROLE_NOPE"]}`, jsonHeader(token))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Invalid body", func(t *testing.T) {
		resp := app.do(t, c, http.MethodPost, "/users", `{`, jsonHeader(token))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetListDeleteUser(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	token := app.login(t, "admin", "admin")

	u, err := app.users.RegisterUser(t.Context(), &services.CreateUserInput{Username: "bob", Password: "secret"})
	require.NoError(t, err)
	path := fmt.Sprintf("/users/%d", u.ID)

	resp := app.do(t, c, http.MethodGet, path, "", jsonHeader(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got UserResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "bob", got.Username)

	resp = app.do(t, c, http.MethodGet, "/users?page=1&page_size=10", "", jsonHeader(token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list PaginatedUsersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.EqualValues(t, 2, list.Total)
	assert.Len(t, list.Users, 2)

	resp = app.do(t, c, http.MethodDelete, path, "", jsonHeader(token))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.do(t, c, http.MethodGet, path, "", jsonHeader(token))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, c, http.MethodGet, "/users/abc", "", jsonHeader(token))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
