package scan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sitesHandler(t *testing.T, failCursor string) http.Handler {
	now := time.Now().UTC()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok", "expires_at": now.Add(time.Hour)})
	})
	mux.HandleFunc("GET /api/v1/sites", func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		if cursor == failCursor {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		switch cursor {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "s1", "name": "alpha"}, {"id": "s2", "name": "beta"}},
				"next":  "p2",
			})
		case "p2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"id": "s3", "name": "gamma"}},
			})
		default:
			t.Errorf("unexpected cursor %q", cursor)
			http.Error(w, "bad cursor", http.StatusBadRequest)
		}
	})
	return mux
}

func TestEnumerateSites_AllPages(t *testing.T) {
	srv := httptest.NewServer(sitesHandler(t, "never"))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.SignIn(context.Background())
	require.NoError(t, err)

	enumerator := NewEnumerator(client, 2, fastRetry(1))
	sites, err := enumerator.EnumerateSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 3)
	assert.Equal(t, "alpha", sites[0].Name)
	assert.Equal(t, "gamma", sites[2].Name)
}

func TestEnumerateSites_PartialOnPermanentPageFailure(t *testing.T) {
	srv := httptest.NewServer(sitesHandler(t, "p2"))
	defer srv.Close()

	client := testClient(srv.URL)
	_, err := client.SignIn(context.Background())
	require.NoError(t, err)

	enumerator := NewEnumerator(client, 2, fastRetry(2))
	sites, err := enumerator.EnumerateSites(context.Background())

	// The first page's sites are kept; the shortfall is reported, not fatal.
	require.Len(t, sites, 2)
	var partial *PartialEnumerationError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Gathered)
}
