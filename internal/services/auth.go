package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"conversa-backend/internal/middleware"
	"conversa-backend/internal/models"
	"conversa-backend/internal/repository"
)

const refreshTTL = 7 * 24 * time.Hour

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

type AuthService struct {
	users      UserStore
	redis      *redis.Client
	jwt        *middleware.JWTAuth
	bcryptCost int
	log        *zap.Logger
}

// NewAuthService builds the account service. With a nil redis client no
// refresh tokens are issued and only access tokens are returned.
func NewAuthService(users UserStore, redisClient *redis.Client, jwt *middleware.JWTAuth, log *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		redis:      redisClient,
		jwt:        jwt,
		bcryptCost: 12,
		log:        log.Named("auth"),
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Validate all fields at once
	fieldErrors := make(map[string]string)

	if utf8.RuneCountInString(username) < 3 {
		fieldErrors["username"] = "Username must be at least 3 characters"
	}
	if !emailRegex.MatchString(email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, &ConflictError{Message: "Email already in use"}
		}
		return nil, err
	}

	s.log.Info("user signed up", zap.Stringer("user_id", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("update last login", zap.Stringer("user_id", user.ID), zap.Error(err))
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if s.redis == nil || refreshToken == "" {
		return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}

	// Rotation: GETDEL consumes the token atomically, so a refresh token
	// is redeemed at most once even under concurrent calls.
	userIDStr, err := s.redis.GetDel(ctx, "refresh:"+refreshToken).Result()
	if errors.Is(err, redis.Nil) {
		return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to redeem refresh token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &UnauthorizedError{Message: "Account no longer exists"}
		}
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if s.redis == nil || refreshToken == "" {
		return nil
	}
	return s.redis.Del(ctx, "refresh:"+refreshToken).Err()
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	tokens := &models.AuthTokens{
		Token:     accessToken,
		ExpiresIn: int(s.jwt.AccessTTL.Seconds()),
		User:      user,
	}

	if s.redis == nil {
		return tokens, nil
	}

	refreshToken, err := generateToken(32)
	if err != nil {
		return nil, err
	}
	err = s.redis.Set(ctx, "refresh:"+refreshToken, user.ID.String(), refreshTTL).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	tokens.RefreshToken = refreshToken

	return tokens, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
