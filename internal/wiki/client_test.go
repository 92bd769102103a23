package wiki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lendingops/internal/config"
	"lendingops/internal/telemetry"

	"github.com/stretchr/testify/require"
)

func newWikiServer(t testing.TB, byIdStatus int) *httptest.Server {
	page := map[string]any{
		"id":    "4425713968",
		"title": "Line of Credit - Release Note",
		"body": map[string]any{
			"storage": map[string]any{"value": releaseNote},
		},
		"version": map[string]any{
			"when": "2025-06-04T10:00:00.000Z",
			"by":   map[string]any{"displayName": "Release Bot"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/content/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ops@bank.test" || pass != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("expand") != "body.storage" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if byIdStatus != http.StatusOK {
			w.WriteHeader(byIdStatus)
			w.Write([]byte(`{"message":"No content found with id"}`))
			return
		}
		json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("/rest/api/content", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		results := []any{}
		if q.Get("title") == "Line of Credit - Release Note" && q.Get("spaceKey") == "TM" {
			results = append(results, page)
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(url string, cfg config.WikiConfig) Client {
	cfg.BaseUrl = url + "/"
	cfg.Username = "ops@bank.test"
	cfg.ApiToken = "token"
	return NewClient(cfg, ClientOptions{Timeout: 5 * time.Second}, &telemetry.Recorder{})
}

func TestFetchById(t *testing.T) {
	server := newWikiServer(t, http.StatusOK)
	client := newTestClient(server.URL, config.WikiConfig{PageId: "4425713968"})

	page, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Line of Credit - Release Note", page.Title)
	require.Equal(t, "Release Bot", page.Version.By.DisplayName)
	require.Equal(t, releaseNote, page.Storage())
}

func TestFetchFallsBackToTitle(t *testing.T) {
	server := newWikiServer(t, http.StatusNotFound)
	client := newTestClient(server.URL, config.WikiConfig{
		PageId:    "1",
		PageTitle: "Line of Credit - Release Note",
	})

	page, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "4425713968", page.Id)
}

func TestFetchFails(t *testing.T) {
	server := newWikiServer(t, http.StatusNotFound)

	_, err := newTestClient(server.URL, config.WikiConfig{PageId: "1"}).Fetch(context.Background())
	require.ErrorContains(t, err, "No content found with id")

	_, err = newTestClient(server.URL, config.WikiConfig{
		PageId:    "1",
		PageTitle: "Unknown page",
	}).Fetch(context.Background())
	require.ErrorIs(t, err, ErrPageNotFound)
}
