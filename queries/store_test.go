package queries

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "blog.db"),
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := config.Migrate(db, &models.User{}, &models.Category{}, &models.Location{}, &models.Post{}, &models.Comment{}, &models.UploadedImage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T, pageSize int) (*Store, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return New(db, pageSize, func() time.Time { return testNow }), db
}

func uintPtr(v uint) *uint { return &v }

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	u := models.User{Username: username}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedCategory(t *testing.T, db *gorm.DB, slug string, published bool) models.Category {
	t.Helper()
	c := models.Category{Title: slug, Slug: slug, IsPublished: published}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func seedLocation(t *testing.T, db *gorm.DB, name string, published bool) models.Location {
	t.Helper()
	l := models.Location{Name: name, IsPublished: published}
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return l
}

func seedPost(t *testing.T, db *gorm.DB, p models.Post) models.Post {
	t.Helper()
	if p.Text == "" {
		p.Text = "body of " + p.Title
	}
	if err := db.Omit(clause.Associations).Create(&p).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func seedComment(t *testing.T, db *gorm.DB, postID, authorID uint, text string) models.Comment {
	t.Helper()
	c := models.Comment{PostID: postID, AuthorID: authorID, Text: text}
	if err := db.Omit(clause.Associations).Create(&c).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

func titles(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
