package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/utils"
)

// StatsController provides blog statistics.
type StatsController struct {
	store *queries.Store
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(store *queries.Store) *StatsController {
	return &StatsController{store: store}
}

// GetStats returns how many users and comments exist and how many posts are public right now.
func (s *StatsController) GetStats(ctx *gin.Context) {
	users, posts, comments, err := s.store.Counts(ctx.Request.Context())
	if err != nil {
		storeError(ctx, err, 40400, "stats")
		return
	}
	utils.Success(ctx, gin.H{
		"user_count":    users,
		"post_count":    posts,
		"comment_count": comments,
	})
}
