package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/utils"
)

func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// pageParam reads ?page=N. Anything unparsable or below 1 means the first page.
func pageParam(ctx *gin.Context) int {
	n, err := strconv.Atoi(strings.TrimSpace(ctx.Query("page")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func paginationOf(p queries.PostPage) utils.Pagination {
	return utils.Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
	}
}

// storeError renders an error coming back from the queries package.
func storeError(ctx *gin.Context, err error, notFoundCode int, what string) {
	switch {
	case errors.Is(err, queries.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, notFoundCode, what+" not found")
	case errors.Is(err, queries.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40010, strings.TrimPrefix(err.Error(), queries.ErrValidation.Error()+": "))
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func userCard(u models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"username":    u.Username,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"date_joined": u.CreatedAt,
	}
}

// privateUser is the caller's own account view.
func privateUser(u models.User) gin.H {
	m := userCard(u)
	m["email"] = u.Email
	m["provider"] = u.Provider
	m["is_admin"] = isAdminUsername(u.Username)
	return m
}

func isAdminUsername(username string) bool {
	return config.Get().IsAdmin(username)
}

func postSummary(p models.Post) gin.H {
	m := gin.H{
		"id":            p.ID,
		"title":         p.Title,
		"text":          p.Text,
		"pub_date":      p.PubDate,
		"is_published":  p.IsPublished,
		"created_at":    p.CreatedAt,
		"image":         p.Image,
		"author":        userCard(p.Author),
		"category":      nil,
		"location":      nil,
		"comment_count": p.CommentCount,
	}
	if p.Category != nil {
		m["category"] = gin.H{"id": p.Category.ID, "title": p.Category.Title, "slug": p.Category.Slug}
	}
	if p.Location != nil && p.Location.IsPublished {
		m["location"] = gin.H{"id": p.Location.ID, "name": p.Location.Name}
	}
	return m
}

func postSummaries(posts []models.Post) []gin.H {
	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		out = append(out, postSummary(p))
	}
	return out
}

func commentView(c models.Comment) gin.H {
	return gin.H{
		"id":         c.ID,
		"post_id":    c.PostID,
		"text":       c.Text,
		"created_at": c.CreatedAt,
		"author":     userCard(c.Author),
	}
}
