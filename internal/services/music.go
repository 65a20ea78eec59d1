package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/spotify"
	"golang.org/x/oauth2"
)

// MusicService manages the optional Spotify link on an account: token
// exchange and refresh, top tracks and playlists for profile decoration,
// and the favorite-songs sync. Any upstream failure comes back as an
// external-service error so handlers can render the section empty instead
// of failing the request.
type MusicService struct {
	userRepo *repository.UserRepository
	client   *spotify.Client
	logger   *logger.Logger
}

func NewMusicService(userRepo *repository.UserRepository, client *spotify.Client, logger *logger.Logger) *MusicService {
	return &MusicService{
		userRepo: userRepo,
		client:   client,
		logger:   logger,
	}
}

func (s *MusicService) AuthURL(state string) string {
	return s.client.AuthURL(state)
}

// Link exchanges the authorization code and stores the resulting tokens on
// the account.
func (s *MusicService) Link(ctx context.Context, userID, code string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	tok, err := s.client.Exchange(ctx, code)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeExternalService, "external service unavailable", err)
	}

	spotifyUserID, err := s.client.Profile(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeExternalService, "external service unavailable", err)
	}

	expiry := tok.Expiry
	if err := s.userRepo.UpdateSpotifyTokens(ctx, user.ID, spotifyUserID, tok.AccessToken, tok.RefreshToken, &expiry); err != nil {
		return fmt.Errorf("failed to store spotify tokens: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":         userID,
		"spotify_user_id": spotifyUserID,
	}).Info("Spotify account linked")

	return nil
}

// Unlink clears the stored tokens.
func (s *MusicService) Unlink(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateSpotifyTokens(ctx, user.ID, "", "", "", nil); err != nil {
		return fmt.Errorf("failed to clear spotify tokens: %w", err)
	}

	s.logger.WithField("user_id", userID).Info("Spotify account unlinked")
	return nil
}

// TopTracks returns the user's most-played tracks from the linked account.
func (s *MusicService) TopTracks(ctx context.Context, userID string, limit int) ([]spotify.Track, error) {
	user, ts, err := s.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.client.TopTracks(ctx, ts, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeExternalService, "external service unavailable", err)
	}

	s.persistRotatedToken(ctx, user, ts)
	return tracks, nil
}

// Playlists returns the user's playlists from the linked account.
func (s *MusicService) Playlists(ctx context.Context, userID string, limit int) ([]spotify.Playlist, error) {
	user, ts, err := s.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}

	playlists, err := s.client.Playlists(ctx, ts, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeExternalService, "external service unavailable", err)
	}

	s.persistRotatedToken(ctx, user, ts)
	return playlists, nil
}

// SyncFavoriteSongs fills the favorite-songs list from the user's top
// tracks. Manually-entered songs take precedence: a non-empty list is
// never overwritten by a sync.
func (s *MusicService) SyncFavoriteSongs(ctx context.Context, userID string) ([]models.FavoriteSong, error) {
	user, ts, err := s.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}

	var existing []models.FavoriteSong
	if len(user.FavoriteSongs) > 0 {
		if err := json.Unmarshal(user.FavoriteSongs, &existing); err != nil {
			s.logger.WithError(err).Warn("Failed to decode stored favorite songs")
		}
	}
	if len(existing) > 0 {
		// 手动填写的清单优先，同步不覆盖
		return existing, nil
	}

	tracks, err := s.client.TopTracks(ctx, ts, models.MaxFavoriteSongs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeExternalService, "external service unavailable", err)
	}

	songs := make([]models.FavoriteSong, 0, models.MaxFavoriteSongs)
	for _, track := range tracks {
		songs = append(songs, models.FavoriteSong{
			Title:  track.Name,
			Artist: track.Artist,
			Icon:   track.ImageURL,
		})
		if len(songs) == models.MaxFavoriteSongs {
			break
		}
	}

	data, err := json.Marshal(songs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal favorite songs: %w", err)
	}
	user.FavoriteSongs = data

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store favorite songs: %w", err)
	}

	s.persistRotatedToken(ctx, user, ts)

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"count":   len(songs),
	}).Info("Favorite songs synced from Spotify")

	return songs, nil
}

func (s *MusicService) getUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *MusicService) tokenSource(ctx context.Context, userID string) (*models.User, oauth2.TokenSource, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !user.SpotifyLinked() {
		return nil, nil, apperrors.New(apperrors.CodeBadRequest, "spotify account not linked")
	}

	tok := &oauth2.Token{
		AccessToken:  user.SpotifyAccessToken,
		RefreshToken: user.SpotifyRefreshToken,
	}
	if user.SpotifyTokenExpiry != nil {
		tok.Expiry = *user.SpotifyTokenExpiry
	}

	return user, s.client.TokenSource(ctx, tok), nil
}

// persistRotatedToken stores a refreshed access token so the next request
// does not refresh again.
func (s *MusicService) persistRotatedToken(ctx context.Context, user *models.User, ts oauth2.TokenSource) {
	tok, err := ts.Token()
	if err != nil {
		return
	}
	if tok.AccessToken == user.SpotifyAccessToken {
		return
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = user.SpotifyRefreshToken
	}

	expiry := tok.Expiry
	var expiryPtr *time.Time
	if !expiry.IsZero() {
		expiryPtr = &expiry
	}

	if err := s.userRepo.UpdateSpotifyTokens(ctx, user.ID, user.SpotifyUserID, tok.AccessToken, refresh, expiryPtr); err != nil {
		s.logger.WithError(err).Error("Failed to persist rotated spotify token")
	}
}
