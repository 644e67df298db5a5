package controllers

import (
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/queries"
	"github.com/cppla/blogicum/utils"
)

const maxUsernameLength = 150

// usernamePattern accepts letters, digits and @.+-_ like the classic account forms.
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// AuthController handles registration, login and account endpoints including third-party providers.
type AuthController struct {
	db    *gorm.DB
	store *queries.Store
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, store *queries.Store) *AuthController {
	return &AuthController{db: db, store: store}
}

func validUsername(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= 1 && n <= maxUsernameLength && usernamePattern.MatchString(s)
}

func validEmail(s string) bool {
	if s == "" {
		return true
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// usernameTaken ignores case, so "Root" cannot be registered next to "root".
func (a *AuthController) usernameTaken(username string, exceptID uint) (bool, error) {
	var n int64
	err := a.db.Model(&models.User{}).Where("LOWER(username) = LOWER(?) AND id <> ?", username, exceptID).Count(&n).Error
	return n > 0, err
}

func issueToken(ctx *gin.Context, user models.User, status int) {
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL)
	if err != nil {
		utils.Sugar.Errorw("generate token", "user_id", user.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token": token,
		"user":  privateUser(user),
	})
}

// Register creates a local account and returns a token for it.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username      string `json:"username" binding:"required"`
		Email         string `json:"email"`
		Password      string `json:"password" binding:"required"`
		Confirm       string `json:"confirm" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if config.Get().RegisterCaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40008, "invalid captcha")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 1-150 letters, digits or @.+-_")
		return
	}
	if !validEmail(req.Email) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
		return
	}
	if req.Password != req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40002, "passwords do not match")
		return
	}

	taken, err := a.usernameTaken(req.Username, 0)
	if err != nil {
		storeError(ctx, err, 40401, "user")
		return
	}
	if taken {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrWeakPassword) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "password must be at least 8 characters")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		utils.Sugar.Errorw("create user", "username", user.Username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	issueToken(ctx, user, http.StatusCreated)
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, image, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": image})
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", strings.TrimSpace(req.Username)).Take(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	issueToken(ctx, user, http.StatusOK)
}

func revokeCurrentToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, _ := ctx.Get(middleware.ContextClaimsKey)
	c, _ := claims.(*utils.Claims)
	utils.BlacklistToken(token, utils.TokenExpiry(c))
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func (a *AuthController) currentUser(ctx *gin.Context) (*models.User, bool) {
	actor := middleware.Actor(ctx)
	if actor == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return nil, false
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).Where("id = ?", actor.ID).Take(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return nil, false
	}
	return &user, true
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, privateUser(*user))
}

// UpdateProfile edits the caller's username, names and email. Absent fields are left as they are.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Username  *string `json:"username"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Email     *string `json:"email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	oldUsername := user.Username

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if !validUsername(name) {
			utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 1-150 letters, digits or @.+-_")
			return
		}
		taken, err := a.usernameTaken(name, user.ID)
		if err != nil {
			storeError(ctx, err, 40401, "user")
			return
		}
		if taken {
			utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
			return
		}
		user.Username = name
	}
	if req.FirstName != nil {
		user.FirstName = truncateRunes(utils.StripTags(*req.FirstName), maxUsernameLength)
	}
	if req.LastName != nil {
		user.LastName = truncateRunes(utils.StripTags(*req.LastName), maxUsernameLength)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !validEmail(email) {
			utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
			return
		}
		user.Email = email
	}

	if err := a.db.WithContext(ctx.Request.Context()).Omit("Posts", "Comments").Save(user).Error; err != nil {
		utils.Sugar.Errorw("update profile", "user_id", user.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
		return
	}
	utils.InvalidateByPrefix(utils.UserCardKey(oldUsername))
	utils.InvalidateByPrefix(utils.UserCardKey(user.Username))

	if user.Username != oldUsername {
		// The old token carries the previous username; revoke it and hand out a fresh one.
		revokeCurrentToken(ctx)
		issueToken(ctx, *user, http.StatusOK)
		return
	}
	utils.Success(ctx, gin.H{"user": privateUser(*user)})
}

// GetUserPublicByUsername returns the public card of a user, cached for an hour.
func (a *AuthController) GetUserPublicByUsername(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	key := utils.UserCardKey(username)

	var card map[string]interface{}
	if utils.CacheGetJSON(key, &card) {
		utils.Success(ctx, card)
		return
	}

	user, err := a.store.UserByUsername(ctx.Request.Context(), username)
	if err != nil {
		storeError(ctx, err, 40411, "user")
		return
	}
	payload := userCard(*user)
	utils.CacheSetJSON(key, payload, time.Hour)
	utils.Success(ctx, payload)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
