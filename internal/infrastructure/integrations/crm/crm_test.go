package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path  string
	query string
	auth  string
	body  map[string]any
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.query = r.URL.Query().Get("api_token")
		c.auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

var lead = leads.CRMLead{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Source: "website"}

func TestHubSpot(t *testing.T) {
	srv, got := captureServer(t, http.StatusCreated)
	c, err := NewClient("HubSpot", "key", srv.URL, srv.Client())
	require.NoError(t, err)
	require.NoError(t, c.CreateContact(context.Background(), lead))

	assert.Equal(t, "/crm/v3/objects/contacts", got.path)
	assert.Equal(t, "Bearer key", got.auth)
	props := got.body["properties"].(map[string]any)
	assert.Equal(t, "ada@example.com", props["email"])
	assert.NotContains(t, props, "phone")
}

func TestZoho(t *testing.T) {
	srv, got := captureServer(t, http.StatusCreated)
	c, err := NewClient("zoho", "tok", srv.URL, srv.Client())
	require.NoError(t, err)
	require.NoError(t, c.CreateContact(context.Background(), lead))

	assert.Equal(t, "/crm/v2/Leads", got.path)
	assert.Equal(t, "Zoho-oauthtoken tok", got.auth)
	data := got.body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Lovelace", data[0].(map[string]any)["Last_Name"])
}

func TestPipedrive(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK)
	c, err := NewClient("pipedrive", "tok", srv.URL, srv.Client())
	require.NoError(t, err)
	require.NoError(t, c.CreateContact(context.Background(), lead))

	assert.Equal(t, "/v1/persons", got.path)
	assert.Equal(t, "tok", got.query)
	assert.Equal(t, "Ada Lovelace", got.body["name"])
}

func TestErrors(t *testing.T) {
	_, err := NewClient("salesforce", "k", "", nil)
	assert.ErrorIs(t, err, ErrUnknownCRM)

	srv, _ := captureServer(t, http.StatusUnauthorized)
	c, err := NewClient("hubspot", "bad", srv.URL, srv.Client())
	require.NoError(t, err)
	assert.Error(t, c.CreateContact(context.Background(), lead))
}
