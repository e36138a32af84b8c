package mutation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSendsJSONHeadersAndBearer(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"slug":"acme"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithToken("tok"))
	out := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/api/teams", Body: map[string]string{"name": "Acme"}})
	require.True(t, out.OK())

	assert.Equal(t, "/api/teams", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.JSONEq(t, `{"name":"Acme"}`, string(body))

	var team struct {
		Slug string `json:"slug"`
	}
	require.NoError(t, out.Decode(&team))
	assert.Equal(t, "acme", team.Slug)
}

func TestDoNoContentIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodPut, Path: "/api/users", Body: map[string]string{"name": "x"}})
	require.True(t, out.OK())
	assert.Nil(t, out.Data)
	assert.NoError(t, out.AsError())
}

func TestDoSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "Email change is not allowed."}})
	}))
	defer srv.Close()

	out := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodPut, Path: "/api/users"})
	require.False(t, out.OK())
	assert.Equal(t, "Email change is not allowed.", out.Err.Message)
	assert.Equal(t, http.StatusBadRequest, out.Err.StatusCode)
	assert.EqualError(t, out.AsError(), "Email change is not allowed.")
}

func TestDoFallsBackToGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodDelete, Path: "/api/teams/acme"})
	require.False(t, out.OK())
	assert.Equal(t, GenericMessage, out.Err.Message)
	assert.Equal(t, http.StatusInternalServerError, out.Err.StatusCode)
}

func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	out := NewClient(url).Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/users"})
	require.False(t, out.OK())
	assert.Equal(t, GenericMessage, out.Err.Message)
	assert.Zero(t, out.Err.StatusCode)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"data":[{"slug":"acme"}]}`))
	}))
	defer srv.Close()

	data, err := NewClient(srv.URL).Fetch(context.Background(), "/api/teams")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"slug":"acme"}]`, string(data))
}
