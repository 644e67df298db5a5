package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

// PostController serves listings, post detail and post mutations.
type PostController struct {
	store  *queries.Store
	images storage.ImageStore
}

// NewPostController creates a PostController.
func NewPostController(store *queries.Store, images storage.ImageStore) *PostController {
	return &PostController{store: store, images: images}
}

type postRequest struct {
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	PubDate     *time.Time `json:"pub_date"`
	IsPublished *bool      `json:"is_published"`
	Image       *string    `json:"image"`
	CategoryID  *uint      `json:"category_id"`
	LocationID  *uint      `json:"location_id"`
}

// input converts the request body. Omitted pub_date means now and omitted is_published means true.
func (r postRequest) input() queries.PostInput {
	in := queries.PostInput{
		Title:       utils.StripTags(r.Title),
		Text:        utils.Sanitize(r.Text),
		PubDate:     time.Now().UTC().Truncate(time.Second),
		IsPublished: true,
		CategoryID:  r.CategoryID,
		LocationID:  r.LocationID,
	}
	if r.PubDate != nil {
		in.PubDate = r.PubDate.UTC()
	}
	if r.IsPublished != nil {
		in.IsPublished = *r.IsPublished
	}
	if r.Image != nil {
		img := strings.TrimSpace(*r.Image)
		in.Image = &img
	}
	return in
}

// ListPosts is the index: publicly visible posts for everyone, including their authors.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, err := p.store.Index(ctx.Request.Context(), pageParam(ctx))
	if err != nil {
		storeError(ctx, err, 40420, "page")
		return
	}
	utils.Success(ctx, gin.H{"items": postSummaries(page.Items), "pagination": paginationOf(page)})
}

// ListCategoryPosts lists the public posts of a published category.
func (p *PostController) ListCategoryPosts(ctx *gin.Context) {
	page, err := p.store.Category(ctx.Request.Context(), ctx.Param("slug"), pageParam(ctx))
	if err != nil {
		storeError(ctx, err, 40421, "category")
		return
	}
	utils.Success(ctx, gin.H{
		"category": gin.H{
			"id":          page.Category.ID,
			"title":       page.Category.Title,
			"description": page.Category.Description,
			"slug":        page.Category.Slug,
		},
		"items":      postSummaries(page.Items),
		"pagination": paginationOf(page.PostPage),
	})
}

// ListProfilePosts lists a user's posts; the user themself also sees drafts and scheduled posts.
func (p *PostController) ListProfilePosts(ctx *gin.Context) {
	page, err := p.store.Profile(ctx.Request.Context(), ctx.Param("username"), middleware.Actor(ctx), pageParam(ctx))
	if err != nil {
		storeError(ctx, err, 40422, "profile")
		return
	}
	utils.Success(ctx, gin.H{
		"profile":    userCard(page.Profile),
		"items":      postSummaries(page.Items),
		"pagination": paginationOf(page.PostPage),
	})
}

// GetPost returns a post with its comments. Posts hidden from the viewer are reported as not found.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40423, "post not found")
		return
	}
	detail, err := p.store.Detail(ctx.Request.Context(), id, middleware.Actor(ctx))
	if err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}

	post := postSummary(detail.Post)
	post["text_html"] = utils.RenderMarkdown(detail.Post.Text)
	comments := make([]gin.H, 0, len(detail.Comments))
	for _, c := range detail.Comments {
		comments = append(comments, commentView(c))
	}
	utils.Success(ctx, gin.H{"post": post, "comments": comments})
}

// CreatePost stores a post authored by the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	post, err := p.store.CreatePost(ctx.Request.Context(), middleware.Actor(ctx), req.input())
	if err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}
	utils.Sugar.Infow("post created", "post_id", post.ID, "author_id", post.AuthorID)
	utils.Created(ctx, gin.H{"id": post.ID, "location": policy.PostDetailPath(post.ID)})
}

// UpdatePost edits a post. Anyone but the author is sent back to the post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40423, "post not found")
		return
	}
	post, err := p.store.Post(ctx.Request.Context(), id)
	if err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}
	if d := policy.GuardPost(post, middleware.Actor(ctx)); !d.IsAllowed() {
		utils.SeeOther(ctx, d.Redirect)
		return
	}

	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}
	previousImage := post.Image
	if err := p.store.UpdatePost(ctx.Request.Context(), post, req.input()); err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}
	if previousImage != "" && previousImage != post.Image {
		p.dropImage(ctx, post.AuthorID, previousImage)
	}
	utils.Success(ctx, gin.H{"id": post.ID, "location": policy.PostDetailPath(post.ID)})
}

// DeletePost removes a post with its comments. Anyone but the author is sent back to the post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40423, "post not found")
		return
	}
	post, err := p.store.Post(ctx.Request.Context(), id)
	if err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}
	if d := policy.GuardPost(post, middleware.Actor(ctx)); !d.IsAllowed() {
		utils.SeeOther(ctx, d.Redirect)
		return
	}
	author, err := p.store.UserByID(ctx.Request.Context(), post.AuthorID)
	if err != nil {
		storeError(ctx, err, 40422, "profile")
		return
	}
	if err := p.store.DeletePost(ctx.Request.Context(), post); err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}
	if post.Image != "" {
		p.dropImage(ctx, post.AuthorID, post.Image)
	}
	utils.Sugar.Infow("post deleted", "post_id", post.ID, "author_id", post.AuthorID)
	utils.Success(ctx, gin.H{"location": "/api/v1/profile/" + author.Username})
}

// dropImage deletes the file behind url when ownerID uploaded it and no post uses it any more.
func (p *PostController) dropImage(ctx *gin.Context, ownerID uint, url string) {
	if p.images == nil {
		return
	}
	released, err := p.store.ReleaseImage(ctx.Request.Context(), ownerID, url)
	if err != nil {
		utils.Sugar.Warnw("release image", "url", url, "error", err)
		return
	}
	if !released {
		return
	}
	if err := p.images.Delete(ctx.Request.Context(), url); err != nil {
		utils.Sugar.Warnw("delete image", "url", url, "error", err)
	}
}

// UploadImage stores a post image (multipart field "image") and returns its URL.
func (p *PostController) UploadImage(ctx *gin.Context) {
	if p.images == nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "image storage not configured")
		return
	}
	file, _, err := ctx.Request.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no image uploaded")
		return
	}
	defer file.Close()

	maxBytes := int64(config.Get().MaxImageSizeMB) << 20
	url, err := storage.Upload(ctx.Request.Context(), p.images, file, maxBytes)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		utils.Error(ctx, http.StatusBadRequest, 40032, "image too large")
	case errors.Is(err, storage.ErrNotImage):
		utils.Error(ctx, http.StatusBadRequest, 40031, "unsupported image type")
	case err != nil:
		utils.Sugar.Errorw("store image", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store image")
	default:
		if err := p.store.RecordImage(ctx.Request.Context(), middleware.Actor(ctx).ID, url); err != nil {
			utils.Sugar.Errorw("record image", "url", url, "error", err)
			if derr := p.images.Delete(ctx.Request.Context(), url); derr != nil {
				utils.Sugar.Warnw("delete unrecorded image", "url", url, "error", derr)
			}
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store image")
			return
		}
		utils.Created(ctx, gin.H{"url": url})
	}
}
