package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"yatube/internal/auth"
	"yatube/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T) (*AccountService, *memUserRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	users := newMemUserRepo()
	tokens := auth.NewManager("test-secret-at-least-32-characters!!", time.Hour)
	return NewAccountService(users, tokens, rdb, "http://testserver/"), users, mr
}

func TestAccountService_SignupAndAuthenticate(t *testing.T) {
	svc, _, _ := newAccountService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{Username: "leo", Email: "leo@example.com", Password: "War-And-Peace-1869"})
	require.NoError(t, err)
	assert.NotEqual(t, "War-And-Peace-1869", user.Password)

	_, err = svc.Signup(ctx, SignupInput{Username: "leo", Password: "another-Pass-1"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	got, err := svc.Authenticate(ctx, "leo", "War-And-Peace-1869")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "leo", "wrong")
	assert.True(t, IsUnauthorized(err))
	_, err = svc.Authenticate(ctx, "ghost", "whatever")
	assert.True(t, IsUnauthorized(err))
}

func TestAccountService_SessionLifecycle(t *testing.T) {
	svc, _, mr := newAccountService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{Username: "leo", Password: "War-And-Peace-1869"})
	require.NoError(t, err)

	token, err := svc.StartSession(user)
	require.NoError(t, err)

	resolved, claims, err := svc.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	require.NoError(t, svc.Logout(ctx, claims))
	assert.True(t, mr.Exists("blacklist:"+claims.ID))

	_, _, err = svc.ResolveSession(ctx, token)
	assert.True(t, IsUnauthorized(err))

	_, _, err = svc.ResolveSession(ctx, "garbage")
	assert.True(t, IsUnauthorized(err))
}

func TestAccountService_ChangePassword(t *testing.T) {
	svc, users, _ := newAccountService(t)
	ctx := context.Background()
	user, err := svc.Signup(ctx, SignupInput{Username: "leo", Password: "War-And-Peace-1869"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrong", "Anna-Karenina-1877")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "War-And-Peace-1869", "Anna-Karenina-1877"))
	stored, _ := users.GetByID(ctx, user.ID)
	assert.True(t, auth.CheckPassword(stored.Password, "Anna-Karenina-1877"))
}

func TestAccountService_PasswordReset(t *testing.T) {
	svc, users, _ := newAccountService(t)
	ctx := context.Background()
	user, err := svc.Signup(ctx, SignupInput{Username: "leo", Email: "leo@example.com", Password: "War-And-Peace-1869"})
	require.NoError(t, err)

	link, err := svc.RequestPasswordReset(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, link)

	link, err = svc.RequestPasswordReset(ctx, "leo@example.com")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "http://testserver/auth/reset/"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	require.Len(t, parts, 4)
	uid, token := parts[2], parts[3]

	got, err := svc.CheckResetLink(ctx, uid, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, svc.ResetPassword(ctx, uid, token, "Anna-Karenina-1877"))
	stored, _ := users.GetByID(ctx, user.ID)
	assert.True(t, auth.CheckPassword(stored.Password, "Anna-Karenina-1877"))

	err = svc.ResetPassword(ctx, uid, token, "Resurrection-1899")
	assert.True(t, models.HasCode(err, models.CodeValidation))
}
