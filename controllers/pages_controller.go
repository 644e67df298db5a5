package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/utils"
)

// PagesController serves the static "about" and "rules" pages from configuration.
type PagesController struct{}

func NewPagesController() *PagesController { return &PagesController{} }

// About returns the about page.
func (c *PagesController) About(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"title": cfg.AboutTitle,
		"html":  utils.Sanitize(cfg.AboutHTML),
	})
}

// Rules returns the community rules page.
func (c *PagesController) Rules(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"title": cfg.RulesTitle,
		"html":  utils.Sanitize(cfg.RulesHTML),
	})
}
