package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"blog-challenge-system/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlogService struct {
	DB *gorm.DB
}

func NewBlogService(db *gorm.DB) *BlogService {
	return &BlogService{DB: db}
}

func withBlogRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Likes").Preload("Comments")
}

// ListBlogs returns every blog, newest first.
func (s *BlogService) ListBlogs(ctx context.Context) ([]models.Blog, error) {
	var blogs []models.Blog
	if err := withBlogRelations(s.DB.WithContext(ctx)).Order("created_at DESC").Find(&blogs).Error; err != nil {
		return nil, storeErr("blogs", err)
	}
	return blogs, nil
}

func (s *BlogService) GetBlog(ctx context.Context, id string) (*models.Blog, error) {
	var b models.Blog
	if err := withBlogRelations(s.DB.WithContext(ctx)).First(&b, "id = ?", id).Error; err != nil {
		return nil, storeErr("blog", err)
	}
	return &b, nil
}

// ListBlogsByAuthor returns a user's blogs, newest first.
func (s *BlogService) ListBlogsByAuthor(ctx context.Context, authorID string) ([]models.Blog, error) {
	var blogs []models.Blog
	err := withBlogRelations(s.DB.WithContext(ctx)).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&blogs).Error
	if err != nil {
		return nil, storeErr("blogs", err)
	}
	return blogs, nil
}

type BlogInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Image       *string  `json:"image"`
	Categories  []string `json:"categories"`
	ChallengeID string   `json:"challengeId"`
}

func (s *BlogService) CreateBlog(ctx context.Context, authorID string, in BlogInput) (*models.Blog, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return nil, invalid("title and content are required")
	}
	b := &models.Blog{
		Title:      title,
		Slug:       slug.Make(title),
		Content:    in.Content,
		ImageURL:   in.Image,
		AuthorID:   authorID,
		Categories: nonNilTags(in.Categories),
	}
	if err := s.DB.WithContext(ctx).Create(b).Error; err != nil {
		return nil, storeErr("create blog", err)
	}
	log.Printf("[Blog] 📝 %s created %q", authorID, title)
	return s.GetBlog(ctx, b.ID)
}

// owned loads a blog and checks that userID wrote it.
func (s *BlogService) owned(ctx context.Context, id, userID string) (*models.Blog, error) {
	var b models.Blog
	if err := s.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, storeErr("blog", err)
	}
	if b.AuthorID != userID {
		return nil, ErrForbidden
	}
	return &b, nil
}

func (s *BlogService) UpdateBlog(ctx context.Context, id, userID string, in BlogInput) (*models.Blog, error) {
	b, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		b.Title = title
		b.Slug = slug.Make(title)
	}
	if strings.TrimSpace(in.Content) != "" {
		b.Content = in.Content
	}
	if in.Image != nil {
		b.ImageURL = in.Image
	}
	if in.Categories != nil {
		b.Categories = nonNilTags(in.Categories)
	}
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Save(b).Error; err != nil {
		return nil, storeErr("update blog", err)
	}
	return s.GetBlog(ctx, id)
}

// DeleteBlog removes a blog with its likes and comments. Blogs submitted to a challenge are kept.
func (s *BlogService) DeleteBlog(ctx context.Context, id, userID string) error {
	b, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.ChallengeParticipant{}).Where("blog_id = ?", b.ID).Count(&refs).Error; err != nil {
			return storeErr("participations", err)
		}
		if refs > 0 {
			return fmt.Errorf("blog was submitted to a challenge and cannot be deleted: %w", ErrConflict)
		}
		if err := tx.Where("blog_id = ?", b.ID).Delete(&models.BlogLike{}).Error; err != nil {
			return storeErr("delete likes", err)
		}
		if err := tx.Where("blog_id = ?", b.ID).Delete(&models.Comment{}).Error; err != nil {
			return storeErr("delete comments", err)
		}
		if err := tx.Delete(b).Error; err != nil {
			return storeErr("delete blog", err)
		}
		return nil
	})
}

// ToggleLike adds the user's like, or removes it if already present.
func (s *BlogService) ToggleLike(ctx context.Context, blogID, userID string) (*models.Blog, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Blog
		if err := tx.Select("id").First(&b, "id = ?", blogID).Error; err != nil {
			return storeErr("blog", err)
		}
		res := tx.Where("blog_id = ? AND user_id = ?", blogID, userID).Delete(&models.BlogLike{})
		if res.Error != nil {
			return storeErr("unlike", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(&models.BlogLike{BlogID: blogID, UserID: userID}).Error; err != nil && !isDuplicateKey(err) {
			return storeErr("like", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBlog(ctx, blogID)
}

func (s *BlogService) AddComment(ctx context.Context, blogID, userID, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("comment text is required")
	}
	var b models.Blog
	if err := s.DB.WithContext(ctx).Select("id").First(&b, "id = ?", blogID).Error; err != nil {
		return nil, storeErr("blog", err)
	}
	c := &models.Comment{Text: text, BlogID: blogID, UserID: userID}
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, storeErr("create comment", err)
	}
	if err := s.DB.WithContext(ctx).Preload("User").First(c, "id = ?", c.ID).Error; err != nil {
		return nil, storeErr("comment", err)
	}
	return c, nil
}

// ListComments returns a blog's comments, oldest first.
func (s *BlogService) ListComments(ctx context.Context, blogID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where("blog_id = ?", blogID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, storeErr("comments", err)
	}
	return comments, nil
}

// BlogProjections implements BlogReader for the challenge service.
func (s *BlogService) BlogProjections(ctx context.Context, ids []string) (map[string]BlogProjection, error) {
	out := make(map[string]BlogProjection, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	db := s.DB.WithContext(ctx)

	var blogs []models.Blog
	if err := db.Select("id", "title", "content", "author_id").Where("id IN ?", ids).Find(&blogs).Error; err != nil {
		return nil, storeErr("blogs", err)
	}

	var counts []struct {
		BlogID string
		Likes  int
	}
	err := db.Model(&models.BlogLike{}).
		Select("blog_id, COUNT(*) AS likes").
		Where("blog_id IN ?", ids).
		Group("blog_id").
		Scan(&counts).Error
	if err != nil {
		return nil, storeErr("blog likes", err)
	}
	likes := make(map[string]int, len(counts))
	for _, c := range counts {
		likes[c.BlogID] = c.Likes
	}

	for _, b := range blogs {
		out[b.ID] = BlogProjection{
			BlogID:        b.ID,
			AuthorID:      b.AuthorID,
			Title:         b.Title,
			LikeCount:     likes[b.ID],
			ContentLength: utf8.RuneCountInString(b.Content),
		}
	}
	return out, nil
}
