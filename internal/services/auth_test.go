package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"conversa-backend/internal/middleware"
	"conversa-backend/internal/models"
	"conversa-backend/internal/repository"
)

func newAuthService() (*AuthService, *middleware.JWTAuth) {
	jwt := middleware.NewJWTAuth("test-secret", time.Hour)
	svc := NewAuthService(repository.NewMemoryUserRepo(), nil, jwt, zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc, jwt
}

func TestSignup_Validation(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "ab",
		Email:    "not-an-email",
		Password: "short",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 3)
	require.Contains(t, vErr.Fields, "username")
	require.Contains(t, vErr.Fields, "email")
	require.Contains(t, vErr.Fields, "password")
}

func TestValidatePassword(t *testing.T) {
	require.Error(t, validatePassword("abc1"))
	require.Error(t, validatePassword("longbutnodigits"))
	require.NoError(t, validatePassword("longwith1digit"))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	req := models.SignupRequest{Username: "alice", Email: "alice@example.com", Password: "password1"}

	user, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	req.Email = "  Alice@Example.com "
	_, err = svc.Signup(context.Background(), req)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	svc, jwt := newAuthService()
	user, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "bob", Email: "bob@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), models.LoginRequest{Email: "BOB@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.Empty(t, tokens.RefreshToken)
	require.Equal(t, 3600, tokens.ExpiresIn)
	require.Equal(t, user.ID, tokens.User.ID)

	id, err := jwt.Verify("Bearer " + tokens.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, id)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newAuthService()
	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "carol", Email: "carol@example.com", Password: "password9",
	})
	require.NoError(t, err)

	for _, req := range []models.LoginRequest{
		{Email: "carol@example.com", Password: "wrong-pass1"},
		{Email: "nobody@example.com", Password: "password9"},
	} {
		_, err := svc.Login(context.Background(), req)
		var unauth *UnauthorizedError
		require.ErrorAs(t, err, &unauth)
	}
}

func TestRefresh_DisabledWithoutRedis(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.RefreshToken(context.Background(), "anything")
	var unauth *UnauthorizedError
	require.ErrorAs(t, err, &unauth)

	require.NoError(t, svc.Logout(context.Background(), "anything"))
}

func newRedisAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	rdb, mr := newTestRedis(t)
	svc := NewAuthService(repository.NewMemoryUserRepo(), rdb, middleware.NewJWTAuth("test-secret", time.Hour), zap.NewNop())
	svc.bcryptCost = bcrypt.MinCost
	return svc, mr
}

func signupAndLogin(t *testing.T, svc *AuthService) *models.AuthTokens {
	t.Helper()
	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "dana", Email: "dana@example.com", Password: "password7",
	})
	require.NoError(t, err)

	tokens, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@example.com", Password: "password7"})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.RefreshToken)
	return tokens
}

func TestLogin_StoresRefreshTokenWithTTL(t *testing.T) {
	svc, mr := newRedisAuthService(t)
	tokens := signupAndLogin(t, svc)

	key := "refresh:" + tokens.RefreshToken
	require.True(t, mr.Exists(key))
	require.Equal(t, refreshTTL, mr.TTL(key))

	stored, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, tokens.User.ID.String(), stored)
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	svc, mr := newRedisAuthService(t)
	first := signupAndLogin(t, svc)

	second, err := svc.RefreshToken(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.Token)
	require.NotEmpty(t, second.RefreshToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, first.User.ID, second.User.ID)

	require.False(t, mr.Exists("refresh:"+first.RefreshToken))
	require.True(t, mr.Exists("refresh:"+second.RefreshToken))

	_, err = svc.RefreshToken(context.Background(), first.RefreshToken)
	var unauth *UnauthorizedError
	require.ErrorAs(t, err, &unauth)

	_, err = svc.RefreshToken(context.Background(), second.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	svc, _ := newRedisAuthService(t)
	tokens := signupAndLogin(t, svc)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RefreshToken(context.Background(), tokens.RefreshToken)

			mu.Lock()
			defer mu.Unlock()
			var unauth *UnauthorizedError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &unauth):
				rejected++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, rejected)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc, mr := newRedisAuthService(t)
	tokens := signupAndLogin(t, svc)

	require.NoError(t, svc.Logout(context.Background(), tokens.RefreshToken))
	require.False(t, mr.Exists("refresh:"+tokens.RefreshToken))

	_, err := svc.RefreshToken(context.Background(), tokens.RefreshToken)
	var unauth *UnauthorizedError
	require.ErrorAs(t, err, &unauth)
}

func TestRefresh_RedisDownIsInternal(t *testing.T) {
	svc, mr := newRedisAuthService(t)
	mr.Close()

	_, err := svc.RefreshToken(context.Background(), "whatever")
	require.Error(t, err)
	var unauth *UnauthorizedError
	require.False(t, errors.As(err, &unauth))
}
