// Package queries assembles the row sets behind every blog listing and
// performs the content store writes.
package queries

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
)

var (
	// ErrNotFound covers both absent rows and rows the viewer may not see.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("validation failed")
)

const commentCountColumn = "(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count"

// Store reads and writes blog content.
type Store struct {
	db       *gorm.DB
	pageSize int
	clock    policy.Clock
}

// New returns a Store listing pageSize posts per page. A nil clock means the system clock.
func New(db *gorm.DB, pageSize int, clock policy.Clock) *Store {
	if pageSize <= 0 {
		pageSize = 10
	}
	if clock == nil {
		clock = policy.SystemClock
	}
	return &Store{db: db, pageSize: pageSize, clock: clock}
}

// PageSize is the fixed number of posts per listing page.
func (s *Store) PageSize() int { return s.pageSize }

// PostPage is one page of a listing.
type PostPage struct {
	Items      []models.Post
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
	HasNext    bool
}

// CategoryPage is a category listing together with its category.
type CategoryPage struct {
	Category models.Category
	PostPage
}

// ProfilePage is a profile listing together with the profile's user.
type ProfilePage struct {
	Profile models.User
	PostPage
}

// PostDetail is a post with all of its comments, oldest first.
type PostDetail struct {
	Post     models.Post
	Comments []models.Comment
}

// joinedPosts selects posts with author, category and location joined in the same statement
// and the comment count computed alongside.
func (s *Store) joinedPosts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.*, " + commentCountColumn).
		Joins("Author").
		Joins("Category").
		Joins("Location")
}

func (s *Store) listPosts(ctx context.Context, page int, scopes ...func(*gorm.DB) *gorm.DB) (PostPage, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return PostPage{}, fmt.Errorf("count posts: %w", err)
	}

	totalPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	posts := []models.Post{}
	// Pages past the end are empty; the offset is only computed for real pages so it cannot overflow.
	if page <= totalPages {
		err := s.joinedPosts(ctx).
			Scopes(scopes...).
			Order("posts.pub_date DESC").
			Order("posts.id DESC").
			Offset((page - 1) * s.pageSize).
			Limit(s.pageSize).
			Find(&posts).Error
		if err != nil {
			return PostPage{}, fmt.Errorf("list posts: %w", err)
		}
	}

	return PostPage{
		Items:      posts,
		Page:       page,
		PageSize:   s.pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}, nil
}

// Index lists every publicly visible post. The index never grants owner privilege,
// so a logged-in author does not see their own drafts here.
func (s *Store) Index(ctx context.Context, page int) (PostPage, error) {
	return s.listPosts(ctx, page, policy.PublicScope(s.clock()))
}

// Category lists the publicly visible posts of the published category with the given slug.
func (s *Store) Category(ctx context.Context, slug string, page int) (*CategoryPage, error) {
	category, err := s.PublishedCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	posts, err := s.listPosts(ctx, page,
		policy.PublicScope(s.clock()),
		func(db *gorm.DB) *gorm.DB { return db.Where("posts.category_id = ?", category.ID) },
	)
	if err != nil {
		return nil, err
	}
	return &CategoryPage{Category: *category, PostPage: posts}, nil
}

// Profile lists the posts of username. The profile's own user sees every one of
// their posts; everyone else sees the publicly visible ones.
func (s *Store) Profile(ctx context.Context, username string, viewer *policy.Actor, page int) (*ProfilePage, error) {
	user, err := s.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	posts, err := s.listPosts(ctx, page,
		policy.ViewerScope(viewer, user.ID, s.clock()),
		func(db *gorm.DB) *gorm.DB { return db.Where("posts.author_id = ?", user.ID) },
	)
	if err != nil {
		return nil, err
	}
	return &ProfilePage{Profile: *user, PostPage: posts}, nil
}

// Detail loads one post for viewer. A post the viewer may not see is reported as ErrNotFound.
func (s *Store) Detail(ctx context.Context, postID uint, viewer *policy.Actor) (*PostDetail, error) {
	post, err := s.viewablePost(ctx, postID, viewer)
	if err != nil {
		return nil, err
	}

	comments := []models.Comment{}
	err = s.db.WithContext(ctx).
		Joins("Author").
		Where("comments.post_id = ?", post.ID).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return &PostDetail{Post: *post, Comments: comments}, nil
}

func (s *Store) viewablePost(ctx context.Context, postID uint, viewer *policy.Actor) (*models.Post, error) {
	var post models.Post
	err := s.joinedPosts(ctx).Where("posts.id = ?", postID).Take(&post).Error
	if err != nil {
		return nil, notFound(err, "load post")
	}
	if !policy.CanView(&post, viewer, s.clock()) {
		return nil, ErrNotFound
	}
	return &post, nil
}

// PublishedCategory resolves slug to a published category. Hidden categories are not found.
func (s *Store) PublishedCategory(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_published = ?", slug, true).
		Take(&category).Error
	if err != nil {
		return nil, notFound(err, "load category")
	}
	return &category, nil
}

// UserByUsername resolves a username to its user.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, notFound(err, "load user")
	}
	return &user, nil
}

// UserByID loads a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, notFound(err, "load user")
	}
	return &user, nil
}

// CountPublicPosts counts the posts anyone can currently see.
func (s *Store) CountPublicPosts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Scopes(policy.PublicScope(s.clock())).Count(&n).Error
	return n, err
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
