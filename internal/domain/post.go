package domain

import "time"

// MaxPostLength bounds the content of posts and comments
const MaxPostLength = 2000

// UserPost Model
type UserPost struct {
	ID           uint      `gorm:"primaryKey" json:"id"`                // Primary key
	UserID       uint      `gorm:"index;not null" json:"user_id"`       // Author
	User         *User     `json:"author,omitempty"`                    // Preloaded author
	Content      string    `gorm:"type:text;not null" json:"content"`   // Post body
	ImageURL     string    `gorm:"size:512" json:"image_url"`           // Optional picture
	LikeCount    int       `gorm:"not null;default:0" json:"like_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Liked      bool `gorm:"-" json:"liked"`      // Caller liked this post
	Bookmarked bool `gorm:"-" json:"bookmarked"` // Caller bookmarked this post
}

// PostLike Model
type PostLike struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user"`
	CreatedAt time.Time
}

// PostBookmark Model
type PostBookmark struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_post_user"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_post_user"`
	CreatedAt time.Time
}

// PostComment Model
type PostComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
