package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func staticSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
}

func TestTopTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/top/tracks", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"id": "track-1",
					"name": "So What",
					"artists": [{"name": "Miles Davis"}],
					"album": {"name": "Kind of Blue", "images": [{"url": "https://img/kob.png"}]},
					"external_urls": {"spotify": "https://open.spotify.com/track/track-1"}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient("id", "secret", "http://localhost/callback", WithAPIBaseURL(server.URL))

	tracks, err := client.TopTracks(context.Background(), staticSource(), 5)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "So What", tracks[0].Name)
	assert.Equal(t, "Miles Davis", tracks[0].Artist)
	assert.Equal(t, "Kind of Blue", tracks[0].Album)
	assert.Equal(t, "https://img/kob.png", tracks[0].ImageURL)
}

func TestPlaylists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/playlists", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"id": "pl-1",
					"name": "Late Night",
					"tracks": {"total": 42},
					"images": [{"url": "https://img/pl.png"}],
					"external_urls": {"spotify": "https://open.spotify.com/playlist/pl-1"}
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient("id", "secret", "http://localhost/callback", WithAPIBaseURL(server.URL))

	playlists, err := client.Playlists(context.Background(), staticSource(), 10)
	require.NoError(t, err)
	require.Len(t, playlists, 1)
	assert.Equal(t, "Late Night", playlists[0].Name)
	assert.Equal(t, 42, playlists[0].TrackCount)
}

func TestProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "spotify-user-9"}`))
	}))
	defer server.Close()

	client := NewClient("id", "secret", "http://localhost/callback", WithAPIBaseURL(server.URL))

	id, err := client.Profile(context.Background(), staticSource())
	require.NoError(t, err)
	assert.Equal(t, "spotify-user-9", id)
}

func TestAPIErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("id", "secret", "http://localhost/callback", WithAPIBaseURL(server.URL))

	_, err := client.TopTracks(context.Background(), staticSource(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAuthURLCarriesState(t *testing.T) {
	client := NewClient("client-id", "secret", "http://localhost/callback")

	url := client.AuthURL("user-abc")
	assert.Contains(t, url, "accounts.spotify.com/authorize")
	assert.Contains(t, url, "state=user-abc")
	assert.Contains(t, url, "client_id=client-id")
}
