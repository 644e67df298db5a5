package policy

import (
	"testing"
	"time"

	"github.com/cppla/blogicum/models"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func uintPtr(v uint) *uint { return &v }

func publishedPost() *models.Post {
	return &models.Post{ID: 1, AuthorID: 7, IsPublished: true, PubDate: now.Add(-time.Hour)}
}

func TestIsPubliclyVisible(t *testing.T) {
	hidden := &models.Category{ID: 3, IsPublished: false}
	shown := &models.Category{ID: 4, IsPublished: true}

	cases := []struct {
		name string
		edit func(p *models.Post)
		want bool
	}{
		{"published and due", func(p *models.Post) {}, true},
		{"unpublished", func(p *models.Post) { p.IsPublished = false }, false},
		{"future pub date", func(p *models.Post) { p.PubDate = now.Add(time.Second) }, false},
		{"pub date equals now", func(p *models.Post) { p.PubDate = now }, true},
		{"no category", func(p *models.Post) { p.CategoryID = nil; p.Category = nil }, true},
		{"published category", func(p *models.Post) { p.CategoryID = uintPtr(4); p.Category = shown }, true},
		{"hidden category", func(p *models.Post) { p.CategoryID = uintPtr(3); p.Category = hidden }, false},
		{"category id without loaded category", func(p *models.Post) { p.CategoryID = uintPtr(3) }, false},
		{"hidden location does not matter", func(p *models.Post) {
			p.LocationID = uintPtr(9)
			p.Location = &models.Location{ID: 9, IsPublished: false}
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := publishedPost()
			tc.edit(p)
			if got := IsPubliclyVisible(p, now); got != tc.want {
				t.Fatalf("IsPubliclyVisible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScheduledPostBecomesVisibleAtPubDate(t *testing.T) {
	p := publishedPost()
	p.PubDate = now.Add(24 * time.Hour)
	if IsPubliclyVisible(p, now) {
		t.Fatal("scheduled post visible before its pub date")
	}
	if IsPubliclyVisible(p, p.PubDate.Add(-time.Nanosecond)) {
		t.Fatal("scheduled post visible one instant before its pub date")
	}
	if !IsPubliclyVisible(p, p.PubDate) {
		t.Fatal("scheduled post hidden at its pub date")
	}
}

func TestCanView(t *testing.T) {
	p := publishedPost()
	p.IsPublished = false
	author := &Actor{ID: 7, Username: "a"}
	other := &Actor{ID: 8, Username: "b"}

	if !CanView(p, author, now) {
		t.Fatal("author cannot view own unpublished post")
	}
	if CanView(p, other, now) {
		t.Fatal("other user can view unpublished post")
	}
	if CanView(p, nil, now) {
		t.Fatal("anonymous can view unpublished post")
	}
	if CanView(nil, author, now) {
		t.Fatal("nil post is viewable")
	}
}

func TestFilterVisiblePosts(t *testing.T) {
	visible := *publishedPost()
	future := *publishedPost()
	future.ID = 2
	future.PubDate = now.Add(time.Hour)
	draft := *publishedPost()
	draft.ID = 3
	draft.IsPublished = false
	posts := []models.Post{visible, future, draft}

	owner := &Actor{ID: 7}
	if got := FilterVisiblePosts(posts, owner, 7, now); len(got) != 3 {
		t.Fatalf("owner sees %d posts, want 3", len(got))
	}
	if got := FilterVisiblePosts(posts, owner, 0, now); len(got) != 1 {
		t.Fatalf("collection without owner shows %d posts, want 1", len(got))
	}
	if got := FilterVisiblePosts(posts, &Actor{ID: 8}, 7, now); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("stranger sees %+v, want only post 1", got)
	}
	if got := FilterVisiblePosts(posts, nil, 7, now); len(got) != 1 {
		t.Fatalf("anonymous sees %d posts, want 1", len(got))
	}
}
