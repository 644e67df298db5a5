package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
)

func TestCreateCommentRejectsEmptyText(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, models.Post{Title: "p", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})

	for _, text := range []string{"", "   \n\t"} {
		_, err := store.CreateComment(context.Background(), post.ID, &policy.Actor{ID: author.ID}, text)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("text %q err = %v, want ErrValidation", text, err)
		}
	}
	var n int64
	db.Model(&models.Comment{}).Count(&n)
	if n != 0 {
		t.Fatalf("comments written on validation failure: %d", n)
	}
}

func TestCreateCommentRequiresViewablePost(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	reader := seedUser(t, db, "reader")
	draft := seedPost(t, db, models.Post{Title: "draft", PubDate: testNow.Add(-time.Hour), IsPublished: false, AuthorID: author.ID})

	ctx := context.Background()
	if _, err := store.CreateComment(ctx, draft.ID, &policy.Actor{ID: reader.ID}, "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reader comment on draft err = %v, want ErrNotFound", err)
	}
	comment, err := store.CreateComment(ctx, draft.ID, &policy.Actor{ID: author.ID}, "note to self")
	if err != nil {
		t.Fatalf("author comment on own draft: %v", err)
	}
	if comment.Author.Username != "author" || comment.PostID != draft.ID {
		t.Fatalf("comment = %+v", comment)
	}
}

func TestUpdateAndDeleteComment(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, models.Post{Title: "p", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	other := seedPost(t, db, models.Post{Title: "q", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	c := seedComment(t, db, post.ID, author.ID, "before")

	ctx := context.Background()
	if _, err := store.Comment(ctx, other.ID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("comment looked up through wrong post: %v", err)
	}
	loaded, err := store.Comment(ctx, post.ID, c.ID)
	if err != nil {
		t.Fatalf("load comment: %v", err)
	}
	if err := store.UpdateComment(ctx, loaded, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank update err = %v", err)
	}
	if err := store.UpdateComment(ctx, loaded, "after"); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded, _ := store.Comment(ctx, post.ID, c.ID)
	if reloaded.Text != "after" {
		t.Fatalf("text = %q", reloaded.Text)
	}
	if err := store.DeleteComment(ctx, reloaded); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Comment(ctx, post.ID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted comment still found: %v", err)
	}
}

func TestCreateAndUpdatePost(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	travel := seedCategory(t, db, "travel", true)
	ctx := context.Background()
	actor := &policy.Actor{ID: author.ID, Username: "author"}

	if _, err := store.CreatePost(ctx, actor, PostInput{Title: "", Text: "x", PubDate: testNow}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty title err = %v", err)
	}
	if _, err := store.CreatePost(ctx, actor, PostInput{Title: "t", Text: "x", PubDate: testNow, CategoryID: uintPtr(999)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown category err = %v", err)
	}

	img := "/media/post_images/a.png"
	if err := store.RecordImage(ctx, author.ID, img); err != nil {
		t.Fatalf("record image: %v", err)
	}
	post, err := store.CreatePost(ctx, actor, PostInput{
		Title: "first", Text: "hello", PubDate: testNow.Add(-time.Hour), IsPublished: true,
		Image: &img, CategoryID: uintPtr(travel.ID),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.AuthorID != author.ID || post.Image != img {
		t.Fatalf("created = %+v", post)
	}

	loaded, err := store.Post(ctx, post.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = store.UpdatePost(ctx, loaded, PostInput{Title: "renamed", Text: "hello again", PubDate: testNow.Add(-time.Hour), IsPublished: false})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	again, _ := store.Post(ctx, post.ID)
	if again.Title != "renamed" || again.IsPublished || again.CategoryID != nil || again.Image != img {
		t.Fatalf("updated = %+v", again)
	}
	if again.AuthorID != author.ID {
		t.Fatalf("author changed to %d", again.AuthorID)
	}
}

func TestDeletePostCascadesComments(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	post := seedPost(t, db, models.Post{Title: "p", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	keep := seedPost(t, db, models.Post{Title: "keep", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	seedComment(t, db, post.ID, author.ID, "a")
	seedComment(t, db, post.ID, author.ID, "b")
	seedComment(t, db, keep.ID, author.ID, "c")

	if err := store.DeletePost(context.Background(), &post); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	db.Model(&models.Comment{}).Count(&n)
	if n != 1 {
		t.Fatalf("remaining comments = %d, want 1", n)
	}
	if _, err := store.Post(context.Background(), post.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post still present: %v", err)
	}
}

func TestDeleteCategoryAndLocationNullPosts(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	cat := seedCategory(t, db, "gone", false)
	loc := seedLocation(t, db, "gone", true)
	post := seedPost(t, db, models.Post{
		Title: "p", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID,
		CategoryID: uintPtr(cat.ID), LocationID: uintPtr(loc.ID),
	})
	ctx := context.Background()

	if _, err := store.Detail(ctx, post.ID, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post in hidden category visible: %v", err)
	}
	if err := store.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if err := store.DeleteLocation(ctx, loc.ID); err != nil {
		t.Fatalf("delete location: %v", err)
	}
	if err := store.DeleteCategory(ctx, cat.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	loaded, err := store.Post(ctx, post.ID)
	if err != nil {
		t.Fatalf("post removed with its category: %v", err)
	}
	if loaded.CategoryID != nil || loaded.LocationID != nil {
		t.Fatalf("foreign keys not nulled: %+v", loaded)
	}
	if _, err := store.Detail(ctx, post.ID, nil); err != nil {
		t.Fatalf("uncategorised post should be public: %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store, db := newTestStore(t, 10)
	gone := seedUser(t, db, "gone")
	stays := seedUser(t, db, "stays")
	own := seedPost(t, db, models.Post{Title: "own", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: gone.ID})
	theirs := seedPost(t, db, models.Post{Title: "theirs", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: stays.ID})
	seedComment(t, db, own.ID, stays.ID, "on removed post")
	seedComment(t, db, theirs.ID, gone.ID, "by removed user")
	kept := seedComment(t, db, theirs.ID, stays.ID, "kept")

	if err := store.DeleteUser(context.Background(), gone.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var comments []models.Comment
	db.Find(&comments)
	if len(comments) != 1 || comments[0].ID != kept.ID {
		t.Fatalf("remaining comments = %+v", comments)
	}
	var posts int64
	db.Model(&models.Post{}).Count(&posts)
	if posts != 1 {
		t.Fatalf("remaining posts = %d", posts)
	}
	if err := store.DeleteUser(context.Background(), gone.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestCategoryValidation(t *testing.T) {
	store, _ := newTestStore(t, 10)
	ctx := context.Background()
	str := func(s string) *string { return &s }

	if _, err := store.CreateCategory(ctx, CategoryInput{Title: str("T"), Slug: str("bad slug!")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad slug err = %v", err)
	}
	c, err := store.CreateCategory(ctx, CategoryInput{Title: str("Travel"), Slug: str("travel")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !c.IsPublished {
		t.Fatalf("new category should be published")
	}
	if _, err := store.CreateCategory(ctx, CategoryInput{Title: str("Again"), Slug: str("travel")}); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate slug err = %v", err)
	}
	hide := false
	updated, err := store.UpdateCategory(ctx, c.ID, CategoryInput{IsPublished: &hide})
	if err != nil || updated.IsPublished {
		t.Fatalf("hide category: %+v %v", updated, err)
	}
	list, _ := store.PublishedCategories(ctx)
	if len(list) != 0 {
		t.Fatalf("hidden category listed: %+v", list)
	}

	loc, err := store.CreateLocation(ctx, LocationInput{})
	if err != nil || loc.Name != models.DefaultLocationName {
		t.Fatalf("default location = %+v %v", loc, err)
	}
}

func TestCounts(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	p := seedPost(t, db, models.Post{Title: "p", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	seedPost(t, db, models.Post{Title: "later", PubDate: testNow.Add(time.Hour), IsPublished: true, AuthorID: author.ID})
	seedComment(t, db, p.ID, author.ID, "c")

	users, posts, comments, err := store.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if users != 1 || posts != 1 || comments != 1 {
		t.Fatalf("counts = %d %d %d", users, posts, comments)
	}
}

func TestDeletedAuthorCannotWrite(t *testing.T) {
	store, db := newTestStore(t, 10)
	author := seedUser(t, db, "author")
	gone := seedUser(t, db, "gone")
	post := seedPost(t, db, models.Post{Title: "p", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: author.ID})
	ctx := context.Background()
	if err := store.DeleteUser(ctx, gone.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	actor := &policy.Actor{ID: gone.ID, Username: "gone"}

	if _, err := store.CreateComment(ctx, post.ID, actor, "still here?"); !errors.Is(err, ErrValidation) {
		t.Fatalf("comment by deleted user err = %v, want ErrValidation", err)
	}
	if _, err := store.CreatePost(ctx, actor, PostInput{Title: "orphan", Text: "x", PubDate: testNow, IsPublished: true}); !errors.Is(err, ErrValidation) {
		t.Fatalf("post by deleted user err = %v, want ErrValidation", err)
	}

	var comments, posts int64
	db.Model(&models.Comment{}).Where("author_id = ?", gone.ID).Count(&comments)
	db.Model(&models.Post{}).Where("author_id = ?", gone.ID).Count(&posts)
	if comments != 0 || posts != 0 {
		t.Fatalf("deleted user wrote %d comments and %d posts", comments, posts)
	}
}

func TestImagesBelongToUploader(t *testing.T) {
	store, db := newTestStore(t, 10)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	ctx := context.Background()
	img := "/media/post_images/2024/05/01/alice.png"
	if err := store.RecordImage(ctx, alice.ID, img); err != nil {
		t.Fatalf("record image: %v", err)
	}
	in := func() PostInput {
		return PostInput{Title: "t", Text: "x", PubDate: testNow.Add(-time.Hour), IsPublished: true, Image: &img}
	}

	if _, err := store.CreatePost(ctx, &policy.Actor{ID: bob.ID}, in()); !errors.Is(err, ErrValidation) {
		t.Fatalf("bob attaching alice's image err = %v, want ErrValidation", err)
	}
	own := seedPost(t, db, models.Post{Title: "bob", PubDate: testNow.Add(-time.Hour), IsPublished: true, AuthorID: bob.ID})
	if err := store.UpdatePost(ctx, &own, in()); !errors.Is(err, ErrValidation) {
		t.Fatalf("bob editing in alice's image err = %v, want ErrValidation", err)
	}

	first, err := store.CreatePost(ctx, &policy.Actor{ID: alice.ID}, in())
	if err != nil {
		t.Fatalf("alice create: %v", err)
	}
	second, err := store.CreatePost(ctx, &policy.Actor{ID: alice.ID}, in())
	if err != nil {
		t.Fatalf("alice reuse: %v", err)
	}

	if ok, _ := store.ReleaseImage(ctx, bob.ID, img); ok {
		t.Fatal("bob released alice's image")
	}
	if err := store.DeletePost(ctx, first); err != nil {
		t.Fatalf("delete first: %v", err)
	}
	if ok, _ := store.ReleaseImage(ctx, alice.ID, img); ok {
		t.Fatal("image released while another post still uses it")
	}
	if err := store.DeletePost(ctx, second); err != nil {
		t.Fatalf("delete second: %v", err)
	}
	ok, err := store.ReleaseImage(ctx, alice.ID, img)
	if err != nil || !ok {
		t.Fatalf("release unused image = %v, %v", ok, err)
	}
}
