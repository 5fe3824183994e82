package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/config"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

const providerGoogle = "google"

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService handles Google sign-in and session management
type AuthService struct {
	userRepo    ports.UserRepository
	accountRepo ports.AccountRepository
	sessionRepo ports.SessionRepository
	oauthConfig *oauth2.Config
	jwtConfig   config.JWTConfig
	logger      *logger.Logger
}

// NewOAuthConfig builds the Google OAuth client used for sign-in and
// calendar access.
func NewOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			oauth2api.UserinfoEmailScope,
			oauth2api.UserinfoProfileScope,
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: google.Endpoint,
	}
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, accountRepo ports.AccountRepository, sessionRepo ports.SessionRepository, oauthConfig *oauth2.Config, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		oauthConfig: oauthConfig,
		jwtConfig:   jwtConfig,
		logger:      logger,
	}
}

// AuthCodeURL returns the Google consent URL for the given state value.
// Offline access is requested so calendar sync keeps working after the
// access token expires.
func (s *AuthService) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleGoogleCallback exchanges the authorization code, resolves the Google
// identity, creates the user on first sign-in and issues a session.
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code string) (*ports.AuthResponse, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	info, err := s.fetchUserinfo(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, info.Email)
	if err == entities.ErrUserNotFound {
		user = &entities.User{
			ID:       uuid.New(),
			Email:    info.Email,
			Name:     info.Name,
			Timezone: "UTC",
		}
		if info.Picture != "" {
			user.AvatarURL = &info.Picture
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("User created on first sign-in", "user_id", user.ID, "email", user.Email)
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	account := &entities.Account{
		UserID:            user.ID,
		Provider:          providerGoogle,
		ProviderAccountID: info.Id,
		AccessToken:       token.AccessToken,
		RefreshToken:      token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.TokenExpiry = &expiry
	}
	if err := s.accountRepo.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to store google account: %w", err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)

	return s.issueSession(ctx, user)
}

// RefreshToken rotates the refresh token and issues a new access token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*ports.AuthResponse, error) {
	tokenHash := hashToken(refreshToken)

	session, err := s.sessionRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, entities.ErrUnauthorized
	}

	// A rotated token coming back means it leaked somewhere along the way.
	// Revoke every session for the user, including the one issued in its
	// place.
	if session.IsRevoked() {
		s.logger.Warn("Refresh token replay detected", "user_id", session.UserID)
		if err := s.sessionRepo.RevokeAllForUser(ctx, session.UserID); err != nil {
			s.logger.Error("Failed to revoke session family", "error", err, "user_id", session.UserID)
		}
		return nil, entities.ErrUnauthorized
	}

	if !session.IsValid() {
		return nil, entities.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, entities.ErrUnauthorized
	}

	response, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Revoke(ctx, tokenHash); err != nil {
		s.logger.Warn("Failed to revoke rotated session", "error", err, "user_id", user.ID)
	}

	return response, nil
}

// Logout revokes all sessions for a user
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessionRepo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	s.logger.Info("User logged out successfully", "user_id", userID)
	return nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &ports.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (s *AuthService) fetchUserinfo(ctx context.Context, token *oauth2.Token) (*oauth2api.Userinfo, error) {
	client := oauth2.NewClient(ctx, s.oauthConfig.TokenSource(ctx, token))

	svc, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}

	if info.Email == "" {
		return nil, fmt.Errorf("google userinfo carries no email")
	}

	return info, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *entities.User) (*ports.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &ports.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtConfig.ExpiresIn.Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) generateAccessToken(user *entities.User) (string, error) {
	claims := &Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *AuthService) generateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)

	session := &entities.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(s.jwtConfig.RefreshExpiresIn),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// hashToken derives the storage key for a refresh token; only the hash is
// persisted.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
