package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

type oauthUser struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	state := utils.NewOAuthState(provider, 10*time.Minute)
	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state, provider) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}
	info, err := fetchOAuthUser(reqCtx, cfg, provider, token)
	if err != nil {
		utils.Sugar.Warnw("oauth user info", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch user info")
		return
	}
	user, err := a.findOrCreateOAuthUser(ctx.Request.Context(), provider, info)
	if err != nil {
		utils.Sugar.Errorw("oauth user persist", "provider", provider, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}
	issueToken(ctx, *user, http.StatusOK)
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchOAuthUser(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*oauthUser, error) {
	client := cfg.Client(ctx, token)
	switch provider {
	case "github":
		return fetchGitHubUser(client)
	case "google":
		return fetchGoogleUser(client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getJSON(client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubUser(client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := getJSON(client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	email := ""
	if err := getJSON(client, "https://api.github.com/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	first, last, _ := strings.Cut(strings.TrimSpace(payload.Name), " ")
	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		FirstName: first,
		LastName:  last,
		Email:     email,
	}, nil
}

func fetchGoogleUser(client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	local, _, _ := strings.Cut(payload.Email, "@")
	return &oauthUser{
		ID:        payload.ID,
		Username:  local,
		FirstName: payload.GivenName,
		LastName:  payload.FamilyName,
		Email:     payload.Email,
	}, nil
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, data *oauthUser) (*models.User, error) {
	db := a.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, data.ID).Take(&user).Error
	if err == nil {
		if email := strings.TrimSpace(data.Email); email != "" && email != user.Email {
			_ = db.Model(&user).Update("email", email).Error
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:   a.ensureUniqueUsername(data.Username, provider, data.ID),
		FirstName:  truncateRunes(data.FirstName, maxUsernameLength),
		LastName:   truncateRunes(data.LastName, maxUsernameLength),
		Email:      strings.TrimSpace(data.Email),
		Provider:   provider,
		ProviderID: data.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	utils.Sugar.Infow("user registered via oauth", "user_id", user.ID, "provider", provider)
	return &user, nil
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			builder.WriteRune(r)
		}
	}
	return truncateRunes(strings.Trim(builder.String(), "_-."), maxUsernameLength-8)
}

func (a *AuthController) ensureUniqueUsername(base, provider, id string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(provider + "_" + id)
	}
	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := a.usernameTaken(candidate, 0)
		if err != nil || !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}
