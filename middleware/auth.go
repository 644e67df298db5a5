package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed claims.
	ContextClaimsKey = "claims"
)

type authFailure struct {
	code    int
	message string
}

func authenticate(ctx *gin.Context) (*utils.Claims, string, *authFailure) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "", &authFailure{40101, "authorization header missing"}
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", &authFailure{40102, "invalid authorization header format"}
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, "", &authFailure{40103, "empty bearer token"}
	}
	if utils.IsTokenBlacklisted(tokenString) {
		return nil, "", &authFailure{40104, "token revoked"}
	}

	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, "", &authFailure{40105, "invalid token"}
	}
	return claims, tokenString, nil
}

// currentAccount reloads the token's user so deleted accounts are rejected and renames take effect at once.
func currentAccount(ctx *gin.Context, db *gorm.DB, claims *utils.Claims) (*models.User, *authFailure) {
	var user models.User
	err := db.WithContext(ctx.Request.Context()).Where("id = ?", claims.UserID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &authFailure{40107, "account no longer exists"}
	}
	if err != nil {
		utils.Sugar.Errorw("load account", "user_id", claims.UserID, "error", err)
		return nil, &authFailure{40109, "account lookup failed"}
	}
	return &user, nil
}

func setIdentity(ctx *gin.Context, user *models.User, claims *utils.Claims, token string) {
	ctx.Set(ContextUserIDKey, user.ID)
	ctx.Set(ContextUsernameKey, user.Username)
	ctx.Set(ContextTokenKey, token)
	ctx.Set(ContextClaimsKey, claims)
}

// AuthRequired ensures the request carries a valid JWT of an existing account.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, token, fail := authenticate(ctx)
		if fail == nil {
			var user *models.User
			if user, fail = currentAccount(ctx, db, claims); fail == nil {
				setIdentity(ctx, user, claims, token)
				ctx.Next()
				return
			}
		}
		utils.Error(ctx, http.StatusUnauthorized, fail.code, fail.message)
		ctx.Abort()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets anonymous requests through.
// A bad token, or one of a deleted account, is treated as anonymous.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") != "" {
			if claims, token, fail := authenticate(ctx); fail == nil {
				if user, fail := currentAccount(ctx, db, claims); fail == nil {
					setIdentity(ctx, user, claims, token)
				}
			}
		}
		ctx.Next()
	}
}

// AdminRequired restricts a route to the configured operator usernames. It must follow AuthRequired,
// which puts the stored username (not the token's) into the context.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !config.Get().IsAdmin(ctx.GetString(ContextUsernameKey)) {
			utils.Error(ctx, http.StatusForbidden, 40301, "operator access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// Actor returns the authenticated caller, or nil for anonymous requests.
func Actor(ctx *gin.Context) *policy.Actor {
	id := ctx.GetUint(ContextUserIDKey)
	if id == 0 {
		return nil
	}
	return &policy.Actor{ID: id, Username: ctx.GetString(ContextUsernameKey)}
}
