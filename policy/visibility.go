// Package policy decides who may see and who may change blog content.
//
// Visibility is derived state: it is recomputed from the post, its category
// and the supplied instant on every call and must never be cached.
package policy

import (
	"time"

	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
)

// Actor is the identity behind a request. A nil *Actor is an anonymous visitor.
type Actor struct {
	ID       uint
	Username string
}

// Is reports whether a is the user with the given id. Anonymous actors are nobody.
func (a *Actor) Is(userID uint) bool {
	return a != nil && a.ID != 0 && a.ID == userID
}

// Clock supplies the instant visibility is evaluated at.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// IsPubliclyVisible reports whether post may be shown to anyone at now.
// A post is due when its pub date is not after now, so pub_date == now is visible.
// A missing category passes; the location never matters.
func IsPubliclyVisible(post *models.Post, now time.Time) bool {
	if post == nil || !post.IsPublished {
		return false
	}
	if post.PubDate.After(now) {
		return false
	}
	if post.CategoryID != nil {
		// An unloaded category cannot prove it is published.
		if post.Category == nil || !post.Category.IsPublished {
			return false
		}
	}
	return true
}

// CanView reports whether viewer may open post's detail page.
func CanView(post *models.Post, viewer *Actor, now time.Time) bool {
	if post == nil {
		return false
	}
	if viewer.Is(post.AuthorID) {
		return true
	}
	return IsPubliclyVisible(post, now)
}

// FilterVisiblePosts returns posts unchanged when viewer owns the whole collection
// (ownerID is the collection's user, 0 when the collection has no single owner),
// otherwise only the publicly visible ones.
func FilterVisiblePosts(posts []models.Post, viewer *Actor, ownerID uint, now time.Time) []models.Post {
	if ownerID != 0 && viewer.Is(ownerID) {
		return posts
	}
	out := make([]models.Post, 0, len(posts))
	for i := range posts {
		if IsPubliclyVisible(&posts[i], now) {
			out = append(out, posts[i])
		}
	}
	return out
}

// PublicScope is the SQL form of IsPubliclyVisible for queries over the posts table.
func PublicScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("posts.is_published = ?", true).
			Where("posts.pub_date <= ?", now).
			Where("posts.category_id IS NULL OR posts.category_id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).
					Table("categories").
					Select("id").
					Where("is_published = ?", true))
	}
}

// ViewerScope applies PublicScope unless viewer owns the collection identified by ownerID.
func ViewerScope(viewer *Actor, ownerID uint, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if ownerID != 0 && viewer.Is(ownerID) {
			return db
		}
		return PublicScope(now)(db)
	}
}
