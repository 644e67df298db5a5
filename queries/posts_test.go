package queries

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
)

func TestIndexListsOnlyPublicPosts(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	open := seedCategory(t, db, "open", true)
	hidden := seedCategory(t, db, "hidden", false)
	hiddenPlace := seedLocation(t, db, "nowhere", false)

	seedPost(t, db, models.Post{Title: "plain", PubDate: testNow.Add(-4 * time.Hour), IsPublished: true, AuthorID: author.ID})
	seedPost(t, db, models.Post{Title: "in-open", PubDate: testNow.Add(-3 * time.Hour), IsPublished: true, AuthorID: author.ID, CategoryID: uintPtr(open.ID)})
	seedPost(t, db, models.Post{Title: "hidden-location", PubDate: testNow.Add(-2 * time.Hour), IsPublished: true, AuthorID: author.ID, LocationID: uintPtr(hiddenPlace.ID)})
	seedPost(t, db, models.Post{Title: "on-the-dot", PubDate: testNow, IsPublished: true, AuthorID: author.ID})
	seedPost(t, db, models.Post{Title: "draft", PubDate: testNow.Add(-time.Hour), IsPublished: false, AuthorID: author.ID})
	seedPost(t, db, models.Post{Title: "scheduled", PubDate: testNow.Add(time.Second), IsPublished: true, AuthorID: author.ID})
	seedPost(t, db, models.Post{Title: "in-hidden", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID, CategoryID: uintPtr(hidden.ID)})

	page, err := store.Index(context.Background(), 1)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	want := []string{"on-the-dot", "hidden-location", "in-open", "plain"}
	if got := titles(page.Items); !equalStrings(got, want) {
		t.Fatalf("index titles = %v, want %v", got, want)
	}
	if page.Total != int64(len(want)) {
		t.Fatalf("total = %d, want %d", page.Total, len(want))
	}
	for _, p := range page.Items {
		if !policy.IsPubliclyVisible(&p, testNow) {
			t.Fatalf("index returned non-public post %q", p.Title)
		}
		if p.Author.Username != "author" {
			t.Fatalf("author not joined for %q: %+v", p.Title, p.Author)
		}
	}
}

func TestIndexOrderingAndCommentCounts(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	reader := seedUser(t, db, "reader")

	older := seedPost(t, db, models.Post{Title: "older", PubDate: testNow.Add(-2 * time.Hour), IsPublished: true, AuthorID: author.ID})
	tieA := seedPost(t, db, models.Post{Title: "tie-a", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	seedPost(t, db, models.Post{Title: "tie-b", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})

	for i := 0; i < 3; i++ {
		seedComment(t, db, older.ID, reader.ID, fmt.Sprintf("c%d", i))
	}
	seedComment(t, db, tieA.ID, author.ID, "own reply")

	page, err := store.Index(context.Background(), 1)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	want := []string{"tie-b", "tie-a", "older"}
	if got := titles(page.Items); !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	counts := map[string]int64{"tie-b": 0, "tie-a": 1, "older": 3}
	for _, p := range page.Items {
		if p.CommentCount != counts[p.Title] {
			t.Fatalf("comment_count(%s) = %d, want %d", p.Title, p.CommentCount, counts[p.Title])
		}
	}
}

func TestIndexPagination(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	for i := 0; i < 12; i++ {
		seedPost(t, db, models.Post{
			Title:       fmt.Sprintf("p%02d", i),
			PubDate:     testNow.Add(-time.Duration(12-i) * time.Minute),
			IsPublished: true,
			AuthorID:    author.ID,
		})
	}
	ctx := context.Background()

	first, err := store.Index(ctx, 1)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(first.Items) != 10 || !first.HasNext || first.TotalPages != 2 || first.Total != 12 {
		t.Fatalf("page 1 = %d items, has_next=%v, total_pages=%d, total=%d", len(first.Items), first.HasNext, first.TotalPages, first.Total)
	}
	if first.Items[0].Title != "p11" {
		t.Fatalf("newest first expected, got %s", first.Items[0].Title)
	}

	second, err := store.Index(ctx, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if got := titles(second.Items); !equalStrings(got, []string{"p01", "p00"}) || second.HasNext {
		t.Fatalf("page 2 = %v has_next=%v", got, second.HasNext)
	}

	beyond, err := store.Index(ctx, 5)
	if err != nil {
		t.Fatalf("page 5: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.Total != 12 {
		t.Fatalf("beyond last page = %d items total %d", len(beyond.Items), beyond.Total)
	}

	// (huge-1)*pageSize wraps around int.
	huge := math.MaxInt/10 + 2
	far, err := store.Index(ctx, huge)
	if err != nil {
		t.Fatalf("page %d: %v", huge, err)
	}
	if len(far.Items) != 0 || far.HasNext || far.Page != huge {
		t.Fatalf("page %d = %d items has_next=%v", huge, len(far.Items), far.HasNext)
	}

	zero, err := store.Index(ctx, 0)
	if err != nil {
		t.Fatalf("page 0: %v", err)
	}
	if zero.Page != 1 || !equalStrings(titles(zero.Items), titles(first.Items)) {
		t.Fatalf("page 0 should behave as page 1")
	}
}

func TestIndexIsIdempotent(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	for i := 0; i < 3; i++ {
		seedPost(t, db, models.Post{Title: fmt.Sprintf("p%d", i), PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	}
	a, err := store.Index(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Index(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(titles(a.Items), titles(b.Items)) {
		t.Fatalf("repeated index differs: %v vs %v", titles(a.Items), titles(b.Items))
	}
}

func TestCategoryListing(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	travel := seedCategory(t, db, "travel", true)
	food := seedCategory(t, db, "food", true)
	seedCategory(t, db, "secret", false)

	seedPost(t, db, models.Post{Title: "trip", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID, CategoryID: uintPtr(travel.ID)})
	seedPost(t, db, models.Post{Title: "trip-draft", PubDate: testNow.Add(-time.Hour), IsPublished: false, AuthorID: author.ID, CategoryID: uintPtr(travel.ID)})
	seedPost(t, db, models.Post{Title: "soup", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID, CategoryID: uintPtr(food.ID)})

	ctx := context.Background()
	page, err := store.Category(ctx, "travel", 1)
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	if page.Category.Slug != "travel" {
		t.Fatalf("category = %+v", page.Category)
	}
	if got := titles(page.Items); !equalStrings(got, []string{"trip"}) {
		t.Fatalf("travel posts = %v", got)
	}

	for _, slug := range []string{"secret", "missing"} {
		if _, err := store.Category(ctx, slug, 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("category %q err = %v, want ErrNotFound", slug, err)
		}
	}
}

func TestProfileScope(t *testing.T) {
	store, db := newTestStore(t, 10)
	owner := seedUser(t, db, "owner")
	other := seedUser(t, db, "other")
	hidden := seedCategory(t, db, "hidden", false)

	seedPost(t, db, models.Post{Title: "public", PubDate: testNow.Add(-3 * time.Hour), IsPublished: true, AuthorID: owner.ID})
	seedPost(t, db, models.Post{Title: "draft", PubDate: testNow.Add(-2 * time.Hour), IsPublished: false, AuthorID: owner.ID})
	seedPost(t, db, models.Post{Title: "future", PubDate: testNow.Add(24 * time.Hour), IsPublished: true, AuthorID: owner.ID})
	seedPost(t, db, models.Post{Title: "in-hidden", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: owner.ID, CategoryID: uintPtr(hidden.ID)})
	seedPost(t, db, models.Post{Title: "not-mine", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: other.ID})

	ctx := context.Background()
	self, err := store.Profile(ctx, "owner", &policy.Actor{ID: owner.ID, Username: "owner"}, 1)
	if err != nil {
		t.Fatalf("own profile: %v", err)
	}
	if got := titles(self.Items); !equalStrings(got, []string{"future", "in-hidden", "draft", "public"}) {
		t.Fatalf("own profile = %v", got)
	}
	if self.Profile.ID != owner.ID {
		t.Fatalf("profile user = %+v", self.Profile)
	}

	for _, viewer := range []*policy.Actor{nil, {ID: other.ID, Username: "other"}} {
		page, err := store.Profile(ctx, "owner", viewer, 1)
		if err != nil {
			t.Fatalf("profile: %v", err)
		}
		if got := titles(page.Items); !equalStrings(got, []string{"public"}) {
			t.Fatalf("profile seen by %v = %v", viewer, got)
		}
	}

	if _, err := store.Profile(ctx, "ghost", nil, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown profile err = %v", err)
	}
}

func TestDetailVisibilityAndCommentOrder(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	reader := seedUser(t, db, "reader")
	hidden := seedCategory(t, db, "hidden", false)

	public := seedPost(t, db, models.Post{Title: "public", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	draft := seedPost(t, db, models.Post{Title: "draft", PubDate: testNow.Add(-time.Hour), IsPublished: false, AuthorID: author.ID})
	inHidden := seedPost(t, db, models.Post{Title: "in-hidden", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID, CategoryID: uintPtr(hidden.ID)})

	first := seedComment(t, db, public.ID, reader.ID, "first")
	second := seedComment(t, db, public.ID, author.ID, "second")
	third := seedComment(t, db, public.ID, reader.ID, "third")

	ctx := context.Background()
	detail, err := store.Detail(ctx, public.ID, nil)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Comments) != 3 {
		t.Fatalf("comments = %d", len(detail.Comments))
	}
	for i, want := range []uint{first.ID, second.ID, third.ID} {
		if detail.Comments[i].ID != want {
			t.Fatalf("comment[%d] = %d, want %d", i, detail.Comments[i].ID, want)
		}
	}
	if detail.Comments[0].Author.Username != "reader" {
		t.Fatalf("comment author not loaded: %+v", detail.Comments[0].Author)
	}

	authorActor := &policy.Actor{ID: author.ID, Username: "author"}
	readerActor := &policy.Actor{ID: reader.ID, Username: "reader"}
	for _, id := range []uint{draft.ID, inHidden.ID} {
		if _, err := store.Detail(ctx, id, authorActor); err != nil {
			t.Fatalf("author detail of %d: %v", id, err)
		}
		if _, err := store.Detail(ctx, id, readerActor); !errors.Is(err, ErrNotFound) {
			t.Fatalf("reader detail of %d err = %v, want ErrNotFound", id, err)
		}
		if _, err := store.Detail(ctx, id, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("anonymous detail of %d err = %v, want ErrNotFound", id, err)
		}
	}
	if _, err := store.Detail(ctx, 9999, authorActor); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing post err = %v", err)
	}
}

func TestDetailTracksClock(t *testing.T) {
	db := openTestDB(t)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, models.Post{Title: "scheduled", PubDate: testNow.Add(time.Hour), IsPublished: true, AuthorID: author.ID})

	now := testNow
	store := New(db, 10, func() time.Time { return now })
	if _, err := store.Detail(context.Background(), post.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("before pub date err = %v", err)
	}
	now = testNow.Add(time.Hour)
	if _, err := store.Detail(context.Background(), post.ID, nil); err != nil {
		t.Fatalf("at pub date: %v", err)
	}
}
