package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"yatube/internal/auth"
	"yatube/internal/cache"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"

	"github.com/redis/go-redis/v9"
)

type AccountService struct {
	userRepo repository.UserRepository
	tokens   *auth.Manager
	rdb      *redis.Client
	baseURL  string
}

type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func NewAccountService(userRepo repository.UserRepository, tokens *auth.Manager, rdb *redis.Client, baseURL string) *AccountService {
	return &AccountService{
		userRepo: userRepo,
		tokens:   tokens,
		rdb:      rdb,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Signup creates an account. A taken username is a VALIDATION_ERROR.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("A user with that username already exists.")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     strings.TrimSpace(in.Email),
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user signed up", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Authenticate checks credentials; any mismatch is UNAUTHORIZED.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return nil, models.NewUnauthorizedError("Please enter a correct username and password. Note that both fields may be case-sensitive.")
	}
	return user, nil
}

// StartSession issues a session token for user.
func (s *AccountService) StartSession(user *models.User) (string, error) {
	token, _, err := s.tokens.IssueSession(user)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// ResolveSession returns the user behind token, or UNAUTHORIZED when the
// token is invalid, revoked or its user is gone.
func (s *AccountService) ResolveSession(ctx context.Context, token string) (*models.User, *auth.SessionClaims, error) {
	claims, err := s.tokens.ParseSession(token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("invalid session")
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, nil, models.NewUnauthorizedError("session revoked")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("invalid session")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil, models.NewUnauthorizedError("session user no longer exists")
		}
		return nil, nil, err
	}
	return user, claims, nil
}

// Logout revokes the session until it would have expired anyway.
func (s *AccountService) Logout(ctx context.Context, claims *auth.SessionClaims) error {
	if claims == nil || s.rdb == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, cache.BlacklistKey(claims.ID), "1", ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke session", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (s *AccountService) isRevoked(ctx context.Context, jti string) bool {
	if s.rdb == nil || jti == "" {
		return false
	}
	n, err := s.rdb.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		middleware.Logger.WarnContext(ctx, "session blacklist unavailable", slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, oldPassword) {
		return models.NewValidationError("Your old password was entered incorrectly. Please enter it again.")
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

// RequestPasswordReset builds a reset link for the account registered under email
// and logs it. Unknown addresses return an empty link and no error.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	token, err := s.tokens.IssueReset(user)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	link := s.baseURL + "/auth/reset/" + auth.EncodeUID(user.ID) + "/" + token + "/"
	middleware.Logger.InfoContext(ctx, "password reset requested",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("reset_link", link),
	)
	return link, nil
}

// CheckResetLink resolves uid and token to the user they were issued for.
func (s *AccountService) CheckResetLink(ctx context.Context, uid, token string) (*models.User, error) {
	id, err := auth.DecodeUID(uid)
	if err != nil {
		return nil, models.NewValidationError("The password reset link was invalid.")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewValidationError("The password reset link was invalid.")
		}
		return nil, err
	}
	if err := s.tokens.CheckReset(token, user); err != nil {
		return nil, models.NewValidationError("The password reset link was invalid, possibly because it has already been used.")
	}
	return user, nil
}

// ResetPassword sets a new password through a reset link.
func (s *AccountService) ResetPassword(ctx context.Context, uid, token, newPassword string) error {
	user, err := s.CheckResetLink(ctx, uid, token)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *AccountService) setPassword(ctx context.Context, userID uint, raw string) error {
	hash, err := auth.HashPassword(raw)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "password changed", slog.Uint64("user_id", uint64(userID)))
	return nil
}

// IsUnauthorized reports whether err is an UNAUTHORIZED AppError.
func IsUnauthorized(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeUnauthorized
}
