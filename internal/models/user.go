package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FavoriteSong is one entry of a user's favorite-song list. The list holds
// at most MaxFavoriteSongs entries and is stored as a JSON column.
type FavoriteSong struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Icon   string `json:"icon,omitempty"`
}

const MaxFavoriteSongs = 5

type User struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	Username      string         `json:"username" gorm:"uniqueIndex;not null"`
	Email         string         `json:"email" gorm:"uniqueIndex;not null"`
	Password      string         `json:"-" gorm:"not null"`
	DisplayName   string         `json:"display_name"`
	Avatar        string         `json:"avatar"`
	Bio           string         `json:"bio"`
	FavoriteGenre string         `json:"favorite_genre"`
	SongOfDay     string         `json:"song_of_day"`
	SongOfDayBy   string         `json:"song_of_day_by"`
	SongPicture   string         `json:"song_picture"`
	FavoriteSongs datatypes.JSON `json:"favorite_songs"`
	Followers     int64          `json:"followers" gorm:"default:0"`
	Following     int64          `json:"following" gorm:"default:0"`
	IsActive      bool           `json:"is_active" gorm:"default:true"`

	// Spotify链接，仅用于装饰个人主页
	SpotifyUserID       string     `json:"-"`
	SpotifyAccessToken  string     `json:"-"`
	SpotifyRefreshToken string     `json:"-"`
	SpotifyTokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// SpotifyLinked reports whether the account has a music-service link.
func (u *User) SpotifyLinked() bool {
	return u.SpotifyRefreshToken != ""
}

// Follow is a directed edge: follower subscribes to following's posts.
// The composite unique index makes a duplicate insert a conflict, never a
// second row; follows are hard-deleted so the pair can be re-created.
type Follow struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	FollowerID  uuid.UUID `json:"follower_id" gorm:"type:uuid;not null;uniqueIndex:idx_follower_following"`
	FollowingID uuid.UUID `json:"following_id" gorm:"type:uuid;not null;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  User `json:"-" gorm:"foreignKey:FollowerID"`
	Following User `json:"-" gorm:"foreignKey:FollowingID"`
}

func (User) TableName() string {
	return "users"
}

func (Follow) TableName() string {
	return "follows"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
