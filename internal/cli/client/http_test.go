package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Get_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/chases/chase-123", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"chase-123","client_ref":"CL-001"}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	resp, err := api.Get("/chases/chase-123")
	require.NoError(t, err)

	var chase Chase
	require.NoError(t, json.Unmarshal(resp.Data, &chase))
	assert.Equal(t, "chase-123", chase.ID)
	assert.Equal(t, "CL-001", chase.ClientRef)
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateChaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CL-001", req.ClientRef)
		assert.Equal(t, "authorization_request", req.Type)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"chase-new","client_ref":"CL-001"}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	resp, err := api.Post("/chases", CreateChaseRequest{
		ClientRef: "CL-001",
		Type:      "authorization_request",
		ValueTier: "high",
	})
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"chase item not found"}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/chases/missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "chase item not found", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("test-key", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/chases")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestNewAPIClientWithCmd_EnvCredentials(t *testing.T) {
	useTempConfig(t)

	t.Setenv(envAPIKey, "chs_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	t.Setenv(envAPIURL, "http://env.example.com")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com", api.baseURL)
}

func TestNewAPIClientWithCmd_NoCredentials(t *testing.T) {
	useTempConfig(t)

	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	_, err := NewAPIClientWithCmd(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHASER_API_KEY not set")
}
