package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"contacts-api/internal/cache"
	"contacts-api/internal/model"
	"contacts-api/pkg/apierror"
)

const bcryptCost = 12

// UserStore is the persistence contract the auth core depends on. The
// concrete implementation is repository.UserRepository.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	UpdateRefreshToken(ctx context.Context, email string, token string) error
	ConfirmEmail(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email string, passwordHash string) error
}

// SessionCache caches user snapshots between requests. Get returns
// cache.ErrMiss both for absent keys and for an unreachable backend.
type SessionCache interface {
	Get(ctx context.Context, email string) (model.User, error)
	Put(ctx context.Context, email string, user model.User)
}

// AuthMailer delivers the templated token-carrying emails. Failures are
// logged by the caller and never surfaced to the client.
type AuthMailer interface {
	SendConfirmation(ctx context.Context, email string, username string, host string, token string) error
	SendPasswordReset(ctx context.Context, email string, username string, host string, token string) error
}

// AvatarResolver produces an avatar URL for an email, best-effort.
type AvatarResolver interface {
	Resolve(ctx context.Context, email string) (string, error)
}

type AuthService struct {
	users      UserStore
	cache      SessionCache
	tokens     *TokenService
	mailer     AuthMailer
	avatars    AvatarResolver
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
	appHost    string
}

func NewAuthService(
	users UserStore,
	sessionCache SessionCache,
	tokens *TokenService,
	mailer AuthMailer,
	avatars AvatarResolver,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	emailTTL time.Duration,
	appHost string,
) *AuthService {
	return &AuthService{
		users:      users,
		cache:      sessionCache,
		tokens:     tokens,
		mailer:     mailer,
		avatars:    avatars,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		emailTTL:   emailTTL,
		appHost:    appHost,
	}
}

// Signup registers a new account with confirmed=false and kicks off the
// confirmation email in the background. Avatar lookup and email delivery are
// best-effort: neither can fail the signup.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return model.User{}, apierror.New("BAD_REQUEST", "username, email and password are required", http.StatusBadRequest)
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return model.User{}, apierror.New("CONFLICT", "Account already exists", http.StatusConflict)
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, err
	}

	avatar, err := s.avatars.Resolve(ctx, req.Email)
	if err != nil {
		slog.Warn("avatar lookup failed, proceeding without avatar", "email", req.Email, "error", err)
		avatar = ""
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	user, err := s.users.Create(ctx, model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Avatar:       avatar,
		Confirmed:    false,
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.User{}, apierror.New("CONFLICT", "Account already exists", http.StatusConflict)
	}
	if err != nil {
		return model.User{}, err
	}

	s.sendConfirmationAsync(user.Email, user.Username)

	return user, nil
}

// Login exchanges credentials for a token pair. The failure reasons are
// deliberately specific, unlike token failures which stay generic.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "Invalid email", http.StatusUnauthorized)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if !user.Confirmed {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "Email not confirmed", http.StatusUnauthorized)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "Invalid password", http.StatusUnauthorized)
	}

	return s.issueTokenPair(ctx, user.Email)
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// match the one stored on the user row: issuing a new pair invalidates every
// older refresh token, and a mismatch clears the stored token entirely.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if claims.Scope != ScopeRefresh {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "Invalid scope for token", http.StatusUnauthorized)
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "Could not validate credentials", http.StatusUnauthorized)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if user.RefreshToken != refreshToken {
		if err := s.users.UpdateRefreshToken(ctx, user.Email, ""); err != nil {
			slog.Error("clear stale refresh token", "email", user.Email, "error", err)
		}
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "Invalid refresh token", http.StatusUnauthorized)
	}

	return s.issueTokenPair(ctx, user.Email)
}

// ConfirmEmail flips the confirmed flag for the token's subject. Confirming
// an already-confirmed account is a no-op with its own message.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.emailFromToken(token)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return "", apierror.New("BAD_REQUEST", "Verification error", http.StatusBadRequest)
	}
	if err != nil {
		return "", err
	}

	if user.Confirmed {
		return "Your email is already confirmed", nil
	}

	if err := s.users.ConfirmEmail(ctx, email); err != nil {
		return "", err
	}

	return "Email confirmed", nil
}

// RequestEmail re-sends the confirmation email. The response never reveals
// whether the address is registered.
func (s *AuthService) RequestEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !user.Confirmed {
		s.sendConfirmationAsync(user.Email, user.Username)
	}

	return nil
}

// RequestPasswordReset emails a reset link. Like RequestEmail, the response
// never reveals whether the address is registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.sendTokenEmailAsync(user.Email, user.Username, s.mailer.SendPasswordReset)
	return nil
}

// ResetPassword consumes an emailed reset token and stores the new hash. The
// stored refresh token is cleared with the old password.
func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if newPassword == "" {
		return apierror.New("BAD_REQUEST", "new password is required", http.StatusBadRequest)
	}

	email, err := s.emailFromToken(token)
	if err != nil {
		return err
	}

	if _, err := s.users.FindByEmail(ctx, email); errors.Is(err, model.ErrUserNotFound) {
		return apierror.New("BAD_REQUEST", "Verification error", http.StatusBadRequest)
	} else if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, email, string(hash))
}

// ChangePassword rotates the stored hash after verifying the current
// password. Outstanding access tokens stay valid until natural expiry; the
// stored refresh token is cleared so a new login is required to refresh.
func (s *AuthService) ChangePassword(ctx context.Context, user model.User, currentPassword string, newPassword string) error {
	if newPassword == "" {
		return apierror.New("BAD_REQUEST", "new password is required", http.StatusBadRequest)
	}

	stored, err := s.users.FindByEmail(ctx, user.Email)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(currentPassword)) != nil {
		return apierror.New("UNAUTHORIZED", "Invalid password", http.StatusUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	return s.users.UpdatePassword(ctx, user.Email, string(hash))
}

// ResolveIdentity turns a bearer access token into the request's user. Cache
// hits skip the store entirely; misses fetch once and fill the cache.
func (s *AuthService) ResolveIdentity(ctx context.Context, accessToken string) (model.User, error) {
	credentialsErr := apierror.New("UNAUTHORIZED", "Could not validate credentials", http.StatusUnauthorized)

	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return model.User{}, err
	}
	if claims.Scope != ScopeAccess {
		return model.User{}, credentialsErr
	}

	if user, err := s.cache.Get(ctx, claims.Subject); err == nil {
		return user, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		return model.User{}, err
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, credentialsErr
	}
	if err != nil {
		return model.User{}, err
	}

	s.cache.Put(ctx, claims.Subject, user)
	return user, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, email string) (model.TokenPair, error) {
	accessToken, err := s.tokens.CreateAccessToken(email, s.accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.tokens.CreateRefreshToken(email, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.users.UpdateRefreshToken(ctx, email, refreshToken); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (s *AuthService) emailFromToken(token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", apierror.New("UNPROCESSABLE", "Invalid token for email verification", http.StatusUnprocessableEntity)
	}
	return claims.Subject, nil
}

func (s *AuthService) sendConfirmationAsync(email string, username string) {
	s.sendTokenEmailAsync(email, username, s.mailer.SendConfirmation)
}

// sendTokenEmailAsync issues an email token and delivers it in the
// background. The HTTP response does not wait for it and delivery failures
// only get logged.
func (s *AuthService) sendTokenEmailAsync(email string, username string, send func(context.Context, string, string, string, string) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		token, err := s.tokens.CreateEmailToken(email, s.emailTTL)
		if err != nil {
			slog.Error("create email token", "email", email, "error", err)
			return
		}

		if err := send(ctx, email, username, s.appHost, token); err != nil {
			slog.Error("send email", "email", email, "error", err)
		}
	}()
}
