package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"

	defaultAPIBaseURL = "https://api.spotify.com/v1"
)

// Track is a display summary of a track from the user's listening history.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
}

// Playlist is a display summary of one of the user's playlists.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TrackCount  int    `json:"track_count"`
	ImageURL    string `json:"image_url,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
}

// Client talks to the Spotify Web API. The zero value is not usable;
// construct with NewClient.
type Client struct {
	oauth      *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

type Option func(*Client)

// WithAPIBaseURL points the client at a different API host, used by tests.
func WithAPIBaseURL(base string) Option {
	return func(c *Client) { c.apiBaseURL = base }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(clientID, clientSecret, redirectURL string, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"user-top-read", "playlist-read-private"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL returns the authorization redirect target for the given state.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("spotify code exchange failed: %w", err)
	}
	return tok, nil
}

// TokenSource wraps a stored token so expired access tokens refresh
// transparently. Callers should compare the resulting token against the
// stored one and persist any rotation.
func (c *Client) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return c.oauth.TokenSource(ctx, tok)
}

// TopTracks fetches the user's most-played tracks.
func (c *Client) TopTracks(ctx context.Context, ts oauth2.TokenSource, limit int) ([]Track, error) {
	var payload struct {
		Items []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name   string `json:"name"`
				Images []struct {
					URL string `json:"url"`
				} `json:"images"`
			} `json:"album"`
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
		} `json:"items"`
	}

	url := fmt.Sprintf("%s/me/top/tracks?limit=%d", c.apiBaseURL, limit)
	if err := c.get(ctx, ts, url, &payload); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(payload.Items))
	for _, item := range payload.Items {
		track := Track{
			ID:          item.ID,
			Name:        item.Name,
			Album:       item.Album.Name,
			ExternalURL: item.ExternalURLs.Spotify,
		}
		if len(item.Artists) > 0 {
			track.Artist = item.Artists[0].Name
		}
		if len(item.Album.Images) > 0 {
			track.ImageURL = item.Album.Images[0].URL
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Playlists fetches the user's playlists.
func (c *Client) Playlists(ctx context.Context, ts oauth2.TokenSource, limit int) ([]Playlist, error) {
	var payload struct {
		Items []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Tracks struct {
				Total int `json:"total"`
			} `json:"tracks"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
		} `json:"items"`
	}

	url := fmt.Sprintf("%s/me/playlists?limit=%d", c.apiBaseURL, limit)
	if err := c.get(ctx, ts, url, &payload); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(payload.Items))
	for _, item := range payload.Items {
		playlist := Playlist{
			ID:          item.ID,
			Name:        item.Name,
			TrackCount:  item.Tracks.Total,
			ExternalURL: item.ExternalURLs.Spotify,
		}
		if len(item.Images) > 0 {
			playlist.ImageURL = item.Images[0].URL
		}
		playlists = append(playlists, playlist)
	}
	return playlists, nil
}

// Profile returns the linked account's Spotify user ID.
func (c *Client) Profile(ctx context.Context, ts oauth2.TokenSource) (string, error) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.get(ctx, ts, c.apiBaseURL+"/me", &payload); err != nil {
		return "", err
	}
	return payload.ID, nil
}

func (c *Client) get(ctx context.Context, ts oauth2.TokenSource, url string, dest interface{}) error {
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("spotify token refresh failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build spotify request: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode spotify response: %w", err)
	}
	return nil
}
