package queries

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// PostInput carries the author-editable fields of a post. Image nil keeps the current image.
type PostInput struct {
	Title       string
	Text        string
	PubDate     time.Time
	IsPublished bool
	Image       *string
	CategoryID  *uint
	LocationID  *uint
}

// CategoryInput carries operator-editable category fields. Nil fields are left unchanged on update.
type CategoryInput struct {
	Title       *string
	Description *string
	Slug        *string
	IsPublished *bool
}

// LocationInput carries operator-editable location fields. Nil fields are left unchanged on update.
type LocationInput struct {
	Name        *string
	IsPublished *bool
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validTitle(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	if utf8.RuneCountInString(v) > models.MaxTitleLength {
		return invalid("%s exceeds %d characters", field, models.MaxTitleLength)
	}
	return nil
}

func (s *Store) validatePost(ctx context.Context, authorID uint, currentImage string, in PostInput) error {
	if err := validTitle("title", in.Title); err != nil {
		return err
	}
	if strings.TrimSpace(in.Text) == "" {
		return invalid("text is required")
	}
	if in.PubDate.IsZero() {
		return invalid("pub_date is required")
	}
	if in.CategoryID != nil {
		if err := s.mustExist(ctx, &models.Category{}, *in.CategoryID); err != nil {
			return invalid("unknown category %d", *in.CategoryID)
		}
	}
	if in.LocationID != nil {
		if err := s.mustExist(ctx, &models.Location{}, *in.LocationID); err != nil {
			return invalid("unknown location %d", *in.LocationID)
		}
	}
	return s.validateImage(ctx, authorID, currentImage, in.Image)
}

// loadAuthor resolves actor to a stored user. An account deleted after its token was issued is rejected.
func loadAuthor(tx *gorm.DB, actor *policy.Actor) (*models.User, error) {
	if actor == nil || actor.ID == 0 {
		return nil, invalid("author is required")
	}
	var user models.User
	err := tx.Where("id = ?", actor.ID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid("author %d does not exist", actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}
	return &user, nil
}

func (s *Store) mustExist(ctx context.Context, model interface{}, id uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func applyPostInput(post *models.Post, in PostInput) {
	post.Title = strings.TrimSpace(in.Title)
	post.Text = in.Text
	post.PubDate = in.PubDate
	post.IsPublished = in.IsPublished
	post.CategoryID = in.CategoryID
	post.LocationID = in.LocationID
	if in.Image != nil {
		post.Image = *in.Image
	}
}

// Post loads a post without any visibility check, for ownership decisions.
func (s *Store) Post(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", postID).Take(&post).Error; err != nil {
		return nil, notFound(err, "load post")
	}
	return &post, nil
}

// CreatePost stores a new post written by author.
func (s *Store) CreatePost(ctx context.Context, author *policy.Actor, in PostInput) (*models.Post, error) {
	if author == nil || author.ID == 0 {
		return nil, invalid("author is required")
	}
	if err := s.validatePost(ctx, author.ID, "", in); err != nil {
		return nil, err
	}
	post := models.Post{AuthorID: author.ID}
	applyPostInput(&post, in)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadAuthor(tx, author); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost replaces the editable fields of post. The author never changes.
func (s *Store) UpdatePost(ctx context.Context, post *models.Post, in PostInput) error {
	if err := s.validatePost(ctx, post.AuthorID, post.Image, in); err != nil {
		return err
	}
	applyPostInput(post, in)
	post.Category, post.Location = nil, nil
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error; err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// DeletePost removes post together with its comments.
func (s *Store) DeletePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments of post %d: %w", post.ID, err)
		}
		if err := tx.Delete(&models.Post{}, post.ID).Error; err != nil {
			return fmt.Errorf("delete post %d: %w", post.ID, err)
		}
		return nil
	})
}

// Comment loads a comment of the given post. A comment of another post is not found.
func (s *Store) Comment(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).
		Where("id = ? AND post_id = ?", commentID, postID).
		Take(&comment).Error
	if err != nil {
		return nil, notFound(err, "load comment")
	}
	return &comment, nil
}

// CreateComment adds a comment by author to a post author can view.
// Text must be non-empty; nothing is written otherwise.
func (s *Store) CreateComment(ctx context.Context, postID uint, author *policy.Actor, text string) (*models.Comment, error) {
	if author == nil || author.ID == 0 {
		return nil, invalid("author is required")
	}
	post, err := s.viewablePost(ctx, postID, author)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("text is required")
	}

	comment := models.Comment{Text: text, PostID: post.ID, AuthorID: author.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadAuthor(tx, author)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		comment.Author = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateComment replaces the text of comment.
func (s *Store) UpdateComment(ctx context.Context, comment *models.Comment, text string) error {
	if strings.TrimSpace(text) == "" {
		return invalid("text is required")
	}
	err := s.db.WithContext(ctx).Model(comment).UpdateColumn("text", text).Error
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	comment.Text = text
	return nil
}

// DeleteComment removes comment.
func (s *Store) DeleteComment(ctx context.Context, comment *models.Comment) error {
	if err := s.db.WithContext(ctx).Delete(&models.Comment{}, comment.ID).Error; err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// PublishedCategories lists the categories shown to visitors.
func (s *Store) PublishedCategories(ctx context.Context) ([]models.Category, error) {
	list := []models.Category{}
	err := s.db.WithContext(ctx).Where("is_published = ?", true).Order("title ASC").Find(&list).Error
	return list, err
}

// PublishedLocations lists the locations shown to visitors.
func (s *Store) PublishedLocations(ctx context.Context) ([]models.Location, error) {
	list := []models.Location{}
	err := s.db.WithContext(ctx).Where("is_published = ?", true).Order("name ASC").Find(&list).Error
	return list, err
}

// CreateCategory stores a category. IsPublished defaults to true.
func (s *Store) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	category := models.Category{IsPublished: true}
	if in.Title == nil || in.Slug == nil {
		return nil, invalid("title and slug are required")
	}
	if err := applyCategoryInput(&category, in); err != nil {
		return nil, err
	}
	if err := s.slugFree(ctx, category.Slug, 0); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

// UpdateCategory patches the category with the given id.
func (s *Store) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&category).Error; err != nil {
		return nil, notFound(err, "load category")
	}
	if err := applyCategoryInput(&category, in); err != nil {
		return nil, err
	}
	if err := s.slugFree(ctx, category.Slug, category.ID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&category).Error; err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &category, nil
}

func applyCategoryInput(c *models.Category, in CategoryInput) error {
	if in.Title != nil {
		if err := validTitle("title", *in.Title); err != nil {
			return err
		}
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if !slugPattern.MatchString(slug) {
			return invalid("slug may only contain latin letters, digits, hyphen and underscore")
		}
		c.Slug = slug
	}
	if in.IsPublished != nil {
		c.IsPublished = *in.IsPublished
	}
	return nil
}

func (s *Store) slugFree(ctx context.Context, slug string, exceptID uint) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("slug = ? AND id <> ?", slug, exceptID).
		Count(&n).Error
	if err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if n > 0 {
		return invalid("slug %q is already taken", slug)
	}
	return nil
}

// DeleteCategory removes a category; its posts stay and lose their category.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		err := tx.Model(&models.Post{}).Where("category_id = ?", id).UpdateColumn("category_id", nil).Error
		if err != nil {
			return fmt.Errorf("detach posts from category: %w", err)
		}
		return nil
	})
}

// CreateLocation stores a location. An empty name becomes DefaultLocationName.
func (s *Store) CreateLocation(ctx context.Context, in LocationInput) (*models.Location, error) {
	location := models.Location{Name: models.DefaultLocationName, IsPublished: true}
	if err := applyLocationInput(&location, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&location).Error; err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return &location, nil
}

// UpdateLocation patches the location with the given id.
func (s *Store) UpdateLocation(ctx context.Context, id uint, in LocationInput) (*models.Location, error) {
	var location models.Location
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&location).Error; err != nil {
		return nil, notFound(err, "load location")
	}
	if err := applyLocationInput(&location, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&location).Error; err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}
	return &location, nil
}

func applyLocationInput(l *models.Location, in LocationInput) error {
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		if err := validTitle("name", *in.Name); err != nil {
			return err
		}
		l.Name = strings.TrimSpace(*in.Name)
	}
	if in.IsPublished != nil {
		l.IsPublished = *in.IsPublished
	}
	return nil
}

// DeleteLocation removes a location; its posts stay and lose their location.
func (s *Store) DeleteLocation(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Location{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete location: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		err := tx.Model(&models.Post{}).Where("location_id = ?", id).UpdateColumn("location_id", nil).Error
		if err != nil {
			return fmt.Errorf("detach posts from location: %w", err)
		}
		return nil
	})
}

// DeleteUser removes a user with their posts, their comments and every comment on their posts.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		ownPosts := tx.Session(&gorm.Session{NewDB: true}).Model(&models.Post{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("author_id = ? OR post_id IN (?)", id, ownPosts).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments of user: %w", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("delete posts of user: %w", err)
		}
		return nil
	})
}

// Counts reports how many users and comments exist and how many posts are public right now.
func (s *Store) Counts(ctx context.Context) (users, posts, comments int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&models.User{}).Count(&users).Error; err != nil {
		return
	}
	if posts, err = s.CountPublicPosts(ctx); err != nil {
		return
	}
	err = db.Model(&models.Comment{}).Count(&comments).Error
	return
}
