package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/utils"
)

// CommentController serves comment creation and author-only edits.
type CommentController struct {
	store *queries.Store
}

// NewCommentController creates a CommentController.
func NewCommentController(store *queries.Store) *CommentController {
	return &CommentController{store: store}
}

type commentRequest struct {
	Text string `json:"text"`
}

// CreateComment adds a comment to a post the caller can see.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40423, "post not found")
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}
	comment, err := c.store.CreateComment(ctx.Request.Context(), postID, middleware.Actor(ctx), utils.Sanitize(req.Text))
	if err != nil {
		storeError(ctx, err, 40423, "post")
		return
	}
	utils.Created(ctx, gin.H{"comment": commentView(*comment), "location": policy.PostDetailPath(comment.PostID)})
}

// loadGuarded resolves the comment in the URL and applies the ownership guard.
// It writes the response and returns false unless the caller may change the comment.
func (c *CommentController) loadGuarded(ctx *gin.Context) (*models.Comment, bool) {
	postID, ok := parseID(ctx, "id")
	commentID, ok2 := parseID(ctx, "commentId")
	if !ok || !ok2 {
		utils.Error(ctx, http.StatusNotFound, 40424, "comment not found")
		return nil, false
	}
	comment, err := c.store.Comment(ctx.Request.Context(), postID, commentID)
	if err != nil {
		storeError(ctx, err, 40424, "comment")
		return nil, false
	}
	if d := policy.GuardComment(comment, middleware.Actor(ctx)); !d.IsAllowed() {
		utils.SeeOther(ctx, d.Redirect)
		return nil, false
	}
	return comment, true
}

// UpdateComment replaces the text of the caller's comment.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	comment, ok := c.loadGuarded(ctx)
	if !ok {
		return
	}
	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}
	if err := c.store.UpdateComment(ctx.Request.Context(), comment, utils.Sanitize(req.Text)); err != nil {
		storeError(ctx, err, 40424, "comment")
		return
	}
	utils.Success(ctx, gin.H{"comment": gin.H{
		"id":         comment.ID,
		"post_id":    comment.PostID,
		"text":       comment.Text,
		"created_at": comment.CreatedAt,
	}, "location": policy.PostDetailPath(comment.PostID)})
}

// DeleteComment removes the caller's comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	comment, ok := c.loadGuarded(ctx)
	if !ok {
		return
	}
	if err := c.store.DeleteComment(ctx.Request.Context(), comment); err != nil {
		storeError(ctx, err, 40424, "comment")
		return
	}
	utils.Success(ctx, gin.H{"location": policy.PostDetailPath(comment.PostID)})
}
