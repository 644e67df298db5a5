package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/controllers"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/storage"
	"github.com/cppla/blogicum/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, images storage.ImageStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if local, ok := images.(*storage.Local); ok {
		r.Static(local.URLPrefix(), local.Dir())
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	store := queries.New(db, cfg.PostsPerPage, policy.SystemClock)
	authController := controllers.NewAuthController(db, store)
	postController := controllers.NewPostController(store, images)
	commentController := controllers.NewCommentController(store)
	catalogController := controllers.NewCatalogController(store)
	statsController := controllers.NewStatsController(store)
	pagesController := controllers.NewPagesController()

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware("auth"))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(db), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(db), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(db), authController.UpdateProfile)

	public := api.Group("")
	public.Use(middleware.OptionalAuth(db))
	public.GET("/posts", postController.ListPosts)
	public.GET("/posts/:id", postController.GetPost)
	public.GET("/category/:slug", postController.ListCategoryPosts)
	public.GET("/profile/:username", postController.ListProfilePosts)
	public.GET("/users/:username", authController.GetUserPublicByUsername)
	public.GET("/categories", catalogController.ListCategories)
	public.GET("/locations", catalogController.ListLocations)
	public.GET("/stats", statsController.GetStats)
	public.GET("/pages/about", pagesController.About)
	public.GET("/pages/rules", pagesController.Rules)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(db), middleware.RateLimitMiddleware("write"))
	protected.POST("/upload", postController.UploadImage)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.PUT("/posts/:id/comments/:commentId", commentController.UpdateComment)
	protected.DELETE("/posts/:id/comments/:commentId", commentController.DeleteComment)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(db), middleware.AdminRequired(), middleware.RateLimitMiddleware("admin"))
	admin.POST("/categories", catalogController.CreateCategory)
	admin.PATCH("/categories/:id", catalogController.UpdateCategory)
	admin.DELETE("/categories/:id", catalogController.DeleteCategory)
	admin.POST("/locations", catalogController.CreateLocation)
	admin.PATCH("/locations/:id", catalogController.UpdateLocation)
	admin.DELETE("/locations/:id", catalogController.DeleteLocation)
	admin.DELETE("/users/:id", catalogController.DeleteUser)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
