package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"conversa-backend/internal/models"
)

type contextKey string

const UserIDKey contextKey = "user_id"

var (
	ErrMissingHeader = errors.New("missing authorization header")
	ErrBadScheme     = errors.New("invalid authorization format")
	ErrTokenExpired  = errors.New("token has expired")
	ErrInvalidToken  = errors.New("invalid token")
)

type JWTAuth struct {
	Secret    []byte
	AccessTTL time.Duration
}

func NewJWTAuth(secret string, accessTTL time.Duration) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), AccessTTL: accessTTL}
}

// GenerateAccessToken signs an HS256 token carrying the user id.
func (j *JWTAuth) GenerateAccessToken(userID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   email,
		"exp":     now.Add(j.AccessTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// Verify checks a raw Authorization header value of the form "Bearer <token>"
// and returns the user id it was issued for.
func (j *JWTAuth) Verify(rawHeader string) (uuid.UUID, error) {
	if rawHeader == "" {
		return uuid.Nil, ErrMissingHeader
	}

	scheme, tokenStr, ok := strings.Cut(rawHeader, " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(tokenStr) == "" {
		return uuid.Nil, ErrBadScheme
	}

	return j.VerifyToken(strings.TrimSpace(tokenStr))
}

// VerifyToken validates a bare token string.
func (j *JWTAuth) VerifyToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// Middleware validates the bearer token and attaches user_id to the context.
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := j.Verify(r.Header.Get("Authorization"))
		if err != nil {
			code := "UNAUTHORIZED"
			if errors.Is(err, ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			writeError(w, http.StatusUnauthorized, code, "Not authorized: "+err.Error(), r)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Message: message,
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(RequestIDHeader),
		},
	})
}
