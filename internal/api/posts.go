package api

import (
	"net/http"                   // HTTP status codes
	"peak_pulse/internal/domain" // Importing domain models
	"peak_pulse/internal/utils"  // Utility functions
	"strings"                    // String manipulation
	"unicode/utf8"               // Content length in characters

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// PostRequest creates a community post
type PostRequest struct {
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"image_url" binding:"omitempty,url,max=512"`
}

// CommentRequest creates a comment
type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// validContent trims s and checks it holds 1 to MaxPostLength characters
func validContent(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	return s, n > 0 && n <= domain.MaxPostLength
}

// authorFields limits preloaded authors to public fields
func authorFields(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name", "role")
}

// markInteractions fills Liked and Bookmarked for userID
func markInteractions(db *gorm.DB, posts []domain.UserPost, userID uint) error {
	if userID == 0 || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	var liked, bookmarked []uint
	if err := db.Model(&domain.PostLike{}).Where("user_id = ? AND post_id IN ?", userID, ids).Pluck("post_id", &liked).Error; err != nil {
		return err
	}
	if err := db.Model(&domain.PostBookmark{}).Where("user_id = ? AND post_id IN ?", userID, ids).Pluck("post_id", &bookmarked).Error; err != nil {
		return err
	}
	likedSet := make(map[uint]bool, len(liked))
	for _, id := range liked {
		likedSet[id] = true
	}
	bookmarkedSet := make(map[uint]bool, len(bookmarked))
	for _, id := range bookmarked {
		bookmarkedSet[id] = true
	}
	for i := range posts {
		posts[i].Liked = likedSet[posts[i].ID]
		posts[i].Bookmarked = bookmarkedSet[posts[i].ID]
	}
	return nil
}

// ListPostsHandler returns the community feed, newest first
func ListPostsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUserID(c) // Anonymous readers allowed
		page := utils.ParsePage(c)
		query := db.Model(&domain.UserPost{})
		if author := c.Query("user_id"); author != "" {
			query = query.Where("user_id = ?", author)
		}
		query = query.Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count posts", err, nil)
			return
		}
		var posts []domain.UserPost
		if err := query.Preload("User", authorFields).Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.PageSize).Find(&posts).Error; err != nil {
			serverError(c, "Failed to fetch posts", err, nil)
			return
		}
		if posts == nil {
			posts = []domain.UserPost{}
		}
		if err := markInteractions(db, posts, userID); err != nil {
			serverError(c, "Failed to fetch posts", err, logrus.Fields{"user_id": userID})
			return
		}
		c.JSON(http.StatusOK, pageResponse("posts", posts, page, total))
	}
}

// GetPostHandler returns a single post
func GetPostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var post domain.UserPost
		if err := db.Preload("User", authorFields).First(&post, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		userID, _ := currentUserID(c)
		posts := []domain.UserPost{post}
		if err := markInteractions(db, posts, userID); err != nil {
			serverError(c, "Failed to fetch post", err, logrus.Fields{"post_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"post": posts[0]})
	}
}

// CreatePostHandler publishes a post as the caller
func CreatePostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req PostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		content, ok := validContent(req.Content)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Content must be 1-2000 characters"})
			return
		}
		post := domain.UserPost{UserID: userID, Content: content, ImageURL: req.ImageURL}
		if err := db.Create(&post).Error; err != nil {
			serverError(c, "Failed to create post", err, logrus.Fields{"user_id": userID})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"post": post})
	}
}

// DeletePostHandler removes a post with its likes, bookmarks and comments
func DeletePostHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var post domain.UserPost
		if err := db.First(&post, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		if post.UserID != userID && !isStaff(userRole(db, userID)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, model := range []any{&domain.PostLike{}, &domain.PostBookmark{}, &domain.PostComment{}} {
				if err := tx.Where("post_id = ?", post.ID).Delete(model).Error; err != nil {
					return err
				}
			}
			return tx.Delete(&post).Error
		})
		if err != nil {
			serverError(c, "Failed to delete post", err, logrus.Fields{"post_id": id})
			return
		}
		logrus.WithFields(logrus.Fields{"post_id": id, "deleted_by": userID}).Info("Post deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
	}
}

// toggle flips the caller's like or bookmark on a post and keeps the counter in step.
// counter is empty when the post carries no counter for model.
func toggle(tx *gorm.DB, model any, postID, userID uint, create func() error, counter string) (bool, error) {
	res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(model)
	if res.Error != nil {
		return false, res.Error
	}
	on := res.RowsAffected == 0
	delta := -1
	if on {
		if err := create(); err != nil {
			return false, err
		}
		delta = 1
	}
	if counter != "" {
		err := tx.Model(&domain.UserPost{}).Where("id = ?", postID).
			Update(counter, gorm.Expr(counter+" + ?", delta)).Error
		if err != nil {
			return false, err
		}
	}
	return on, nil
}

// ToggleLikeHandler likes or unlikes a post
func ToggleLikeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var liked bool
		var post domain.UserPost
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&post, id).Error; err != nil {
				return err
			}
			var err error
			liked, err = toggle(tx, &domain.PostLike{}, id, userID, func() error {
				return tx.Create(&domain.PostLike{PostID: id, UserID: userID}).Error
			}, "like_count")
			if err != nil {
				return err
			}
			return tx.Select("id", "like_count").First(&post, id).Error
		})
		if err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
				return
			}
			serverError(c, "Failed to like post", err, logrus.Fields{"post_id": id, "user_id": userID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": post.LikeCount})
	}
}

// ToggleBookmarkHandler bookmarks or unbookmarks a post
func ToggleBookmarkHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var bookmarked bool
		err := db.Transaction(func(tx *gorm.DB) error {
			var post domain.UserPost
			if err := tx.Select("id").First(&post, id).Error; err != nil {
				return err
			}
			var err error
			bookmarked, err = toggle(tx, &domain.PostBookmark{}, id, userID, func() error {
				return tx.Create(&domain.PostBookmark{PostID: id, UserID: userID}).Error
			}, "")
			return err
		})
		if err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
				return
			}
			serverError(c, "Failed to bookmark post", err, logrus.Fields{"post_id": id, "user_id": userID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookmarked": bookmarked})
	}
}

// ListBookmarksHandler returns the posts the caller bookmarked, most recent bookmark first
func ListBookmarksHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		page := utils.ParsePage(c)
		query := db.Model(&domain.UserPost{}).
			Joins("JOIN post_bookmarks ON post_bookmarks.post_id = user_posts.id").
			Where("post_bookmarks.user_id = ?", userID).
			Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count bookmarks", err, logrus.Fields{"user_id": userID})
			return
		}
		var posts []domain.UserPost
		if err := query.Preload("User", authorFields).Order("post_bookmarks.created_at DESC, post_bookmarks.id DESC").
			Offset(page.Offset()).Limit(page.PageSize).Find(&posts).Error; err != nil {
			serverError(c, "Failed to fetch bookmarks", err, logrus.Fields{"user_id": userID})
			return
		}
		if posts == nil {
			posts = []domain.UserPost{}
		}
		if err := markInteractions(db, posts, userID); err != nil {
			serverError(c, "Failed to fetch bookmarks", err, logrus.Fields{"user_id": userID})
			return
		}
		c.JSON(http.StatusOK, pageResponse("posts", posts, page, total))
	}
}

// ListCommentsHandler returns a post's comments, oldest first
func ListCommentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := db.Select("id").First(&domain.UserPost{}, id).Error; err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
				return
			}
			serverError(c, "Failed to fetch comments", err, logrus.Fields{"post_id": id})
			return
		}
		page := utils.ParsePage(c)
		query := db.Model(&domain.PostComment{}).Where("post_id = ?", id).Session(&gorm.Session{})
		var total int64
		if err := query.Count(&total).Error; err != nil {
			serverError(c, "Failed to count comments", err, logrus.Fields{"post_id": id})
			return
		}
		var comments []domain.PostComment
		if err := query.Preload("User", authorFields).Order("created_at ASC, id ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&comments).Error; err != nil {
			serverError(c, "Failed to fetch comments", err, logrus.Fields{"post_id": id})
			return
		}
		if comments == nil {
			comments = []domain.PostComment{}
		}
		c.JSON(http.StatusOK, pageResponse("comments", comments, page, total))
	}
}

// CreateCommentHandler comments on a post as the caller
func CreateCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		content, ok := validContent(req.Content)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Content must be 1-2000 characters"})
			return
		}
		comment := domain.PostComment{PostID: id, UserID: userID, Content: content}
		err := db.Transaction(func(tx *gorm.DB) error {
			var post domain.UserPost
			if err := tx.Select("id").First(&post, id).Error; err != nil {
				return err
			}
			if err := tx.Create(&comment).Error; err != nil {
				return err
			}
			return tx.Model(&domain.UserPost{}).Where("id = ?", id).
				Update("comment_count", gorm.Expr("comment_count + ?", 1)).Error
		})
		if err != nil {
			if isNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
				return
			}
			serverError(c, "Failed to comment", err, logrus.Fields{"post_id": id, "user_id": userID})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"comment": comment})
	}
}

// DeleteCommentHandler removes a comment, allowed for its author and staff
func DeleteCommentHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var comment domain.PostComment
		if err := db.First(&comment, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		if comment.UserID != userID && !isStaff(userRole(db, userID)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&comment).Error; err != nil {
				return err
			}
			return tx.Model(&domain.UserPost{}).Where("id = ? AND comment_count > 0", comment.PostID).
				Update("comment_count", gorm.Expr("comment_count - ?", 1)).Error
		})
		if err != nil {
			serverError(c, "Failed to delete comment", err, logrus.Fields{"comment_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
	}
}
