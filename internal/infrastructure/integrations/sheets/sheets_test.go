package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/domain/leads"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/integrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPostsOneRow(t *testing.T) {
	var got appendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	form := leads.ContactFormData{
		Name: "Ada Lovelace", Email: "ada@example.com", Message: "Build me a site",
		UTM:         map[string]string{"utm_source": "google"},
		SubmittedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewClient(srv.URL, srv.Client()).Append(context.Background(), form))

	require.Len(t, got.Values, 1)
	row := got.Values[0]
	require.Len(t, row, 12)
	assert.Equal(t, "2024-05-01T12:00:00Z", row[0])
	assert.Equal(t, "Ada Lovelace", row[1])
	assert.JSONEq(t, `{"utm_source":"google"}`, row[9])
}

func TestAppendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Append(context.Background(), leads.ContactFormData{Name: "A"})
	var statusErr *integrations.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
}
