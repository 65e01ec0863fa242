package service

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/events"
	"github.com/Skotchmaster/coursehub/internal/hash"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/mailer"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/ratelimit"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/reset"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/tokens"
)

const maxPasswordBytes = 72

var errBadCredentials = apperr.Unauthorized("invalid email or password")

type Limiter interface {
	CheckLogin(ctx context.Context, email, ip string) error
	FailLogin(ctx context.Context, email, ip string) error
	ResetLogin(ctx context.Context, email, ip string) error
	AllowReset(ctx context.Context, email string) error
}

// LoginRecorder counts login attempts by outcome.
type LoginRecorder interface {
	LoginOutcome(outcome string)
}

type ResetTokens interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Consume(ctx context.Context, token string) (uint, error)
}

type AuthService struct {
	Repo    *repo.GormRepo
	Codec   *tokens.Codec
	Limiter Limiter
	Resets  ResetTokens
	Mailer  mailer.Mailer
	Events  events.Publisher
	Metrics LoginRecorder
}

type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	UserType  models.UserType
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
	UserType  models.UserType
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	if !in.UserType.Valid() {
		return nil, apperr.Validation("userType must be student or instructor")
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.Validation("password is too long")
	}
	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_failed", "status", http.StatusInternalServerError, "reason", "cannot hash the password", "error", err)
		return nil, apperr.Wrap(err, "hash password")
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: pwHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}
	acc := repo.NewAccount{
		User:       user,
		Roles:      []models.RoleTag{models.RoleTag(in.UserType)},
		Student:    in.UserType == models.UserTypeStudent,
		Instructor: in.UserType == models.UserTypeInstructor,
	}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			l.Warn("signup_failed", "status", http.StatusConflict, "reason", "email already registered")
			return nil, apperr.Conflict("email already registered")
		}
		l.Error("signup_failed", "status", http.StatusInternalServerError, "error", err)
		return nil, err
	}

	s.publish(ctx, events.TopicUserEvents, user.Email, events.UserEvent{
		Type: events.UserRegistered, UserID: user.ID, Email: user.Email, UserType: string(in.UserType), At: time.Now().UTC(),
	})
	l.Info("signup_ok", "user_id", user.ID, "user_type", in.UserType)
	return user, nil
}

// Login verifies credentials and mints a session for the requested user type.
// Unknown emails, wrong passwords and disabled accounts share one error.
func (s *AuthService) Login(ctx context.Context, email, password string, userType models.UserType, ip string) (*LoginResult, error) {
	email = models.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if s.Limiter != nil {
		if err := s.Limiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				l.Warn("login_failed", "status", http.StatusTooManyRequests, "reason", "rate limited")
				s.recordLogin("rate_limited")
				return nil, apperr.RateLimited("too many login attempts, try again later")
			}
			// a limiter outage must not lock everybody out
			l.Error("login_limiter_unavailable", "error", err)
		}
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	switch {
	case apperr.Is(err, apperr.KindNotFound):
		hash.BurnCompare(password)
		return nil, s.loginFailed(ctx, email, ip, "unknown email")
	case err != nil:
		l.Error("login_failed", "status", http.StatusInternalServerError, "error", err)
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, s.loginFailed(ctx, email, ip, "wrong password")
	}
	if !user.IsActive {
		return nil, s.loginFailed(ctx, email, ip, "account disabled")
	}

	if userType == "" {
		userType, err = s.defaultUserType(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	}
	ok, err := s.hasProfile(ctx, user.ID, userType)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.Warn("login_failed", "status", http.StatusForbidden, "reason", "no profile for user type", "user_type", userType)
		s.recordLogin("wrong_user_type")
		return nil, apperr.Forbidden("account has no " + string(userType) + " profile")
	}

	token, exp, err := s.Codec.Mint(tokens.Claims{UserID: user.ID, UserType: userType, CurrentView: userType}, 0)
	if err != nil {
		l.Error("login_failed", "status", http.StatusInternalServerError, "reason", "mint token", "error", err)
		return nil, apperr.Wrap(err, "mint session token")
	}

	if s.Limiter != nil {
		if err := s.Limiter.ResetLogin(ctx, email, ip); err != nil {
			l.Warn("login_limiter_reset_failed", "error", err)
		}
	}
	s.publish(ctx, events.TopicUserEvents, user.Email, events.UserEvent{
		Type: events.UserLoggedIn, UserID: user.ID, UserType: string(userType), At: time.Now().UTC(),
	})
	s.recordLogin("success")
	l.Info("login_ok", "user_id", user.ID, "user_type", userType)

	return &LoginResult{Token: token, ExpiresAt: exp, User: user, UserType: userType}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, ip, reason string) error {
	l := logging.FromContext(ctx)
	l.Warn("login_failed", "status", http.StatusUnauthorized, "reason", reason)
	s.recordLogin("invalid_credentials")
	if s.Limiter != nil {
		if err := s.Limiter.FailLogin(ctx, email, ip); err != nil && !errors.Is(err, ratelimit.ErrRateLimited) {
			l.Error("login_limiter_unavailable", "error", err)
		}
	}
	return errBadCredentials
}

func (s *AuthService) recordLogin(outcome string) {
	if s.Metrics != nil {
		s.Metrics.LoginOutcome(outcome)
	}
}

func (s *AuthService) defaultUserType(ctx context.Context, userID uint) (models.UserType, error) {
	ok, err := s.hasProfile(ctx, userID, models.UserTypeStudent)
	if err != nil {
		return "", err
	}
	if ok {
		return models.UserTypeStudent, nil
	}
	return models.UserTypeInstructor, nil
}

// hasProfile reports whether the user holds both the profile row and the role
// tag for kind.
func (s *AuthService) hasProfile(ctx context.Context, userID uint, kind models.UserType) (bool, error) {
	if !kind.Valid() {
		return false, apperr.Validation("userType must be student or instructor")
	}
	tags, err := s.Repo.ListRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	if !slices.Contains(tags, models.RoleTag(kind)) {
		return false, nil
	}
	if kind == models.UserTypeStudent {
		return s.Repo.HasStudentProfile(ctx, userID)
	}
	p, err := s.Repo.GetInstructorProfile(ctx, userID)
	return p != nil, err
}

// SwitchView re-mints the session with a different current view. Only the
// view changes; the declared user type stays.
func (s *AuthService) SwitchView(ctx context.Context, su *session.SessionUser, view models.UserType) (string, time.Time, error) {
	if !view.Valid() {
		return "", time.Time{}, apperr.Validation("view must be student or instructor")
	}
	if !su.HasProfile(view) {
		logging.FromContext(ctx).Warn("switch_view_failed", "status", http.StatusForbidden, "reason", "no profile", "view", view)
		return "", time.Time{}, apperr.Forbidden("account has no " + string(view) + " profile")
	}
	token, exp, err := s.Codec.Mint(tokens.Claims{UserID: su.ID, UserType: su.UserType, CurrentView: view}, 0)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(err, "mint session token")
	}
	return token, exp, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password")

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, current) {
		l.Warn("change_password_failed", "status", http.StatusUnauthorized, "reason", "wrong current password")
		return apperr.Unauthorized("current password is incorrect")
	}
	if err := s.setPassword(ctx, userID, next); err != nil {
		return err
	}
	s.publish(ctx, events.TopicUserEvents, user.Email, events.UserEvent{
		Type: events.PasswordChange, UserID: userID, At: time.Now().UTC(),
	})
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID uint, password string) error {
	if len(password) > maxPasswordBytes {
		return apperr.Validation("password is too long")
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return apperr.Wrap(err, "hash password")
	}
	return s.Repo.UpdatePassword(ctx, userID, pwHash)
}

// RequestPasswordReset never reports whether the email exists. Mail is only
// queued for active accounts and failures are logged, not returned.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	email = models.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.password_reset")

	if s.Limiter != nil {
		if err := s.Limiter.AllowReset(ctx, email); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				l.Warn("password_reset_throttled")
				return
			}
			l.Error("password_reset_limiter_unavailable", "error", err)
		}
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			l.Error("password_reset_failed", "error", err)
		}
		return
	}
	if !user.IsActive {
		return
	}
	token, err := s.Resets.Issue(ctx, user.ID)
	if err != nil {
		l.Error("password_reset_failed", "reason", "issue token", "error", err)
		return
	}
	if err := s.Mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		l.Error("password_reset_failed", "reason", "queue mail", "error", err)
		return
	}
	l.Info("password_reset_requested", "user_id", user.ID)
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.password_reset")

	userID, err := s.Resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, reset.ErrInvalidToken) {
			l.Warn("password_reset_failed", "status", http.StatusBadRequest, "reason", "invalid token")
			return apperr.Validation("invalid or expired reset token")
		}
		return apperr.Wrap(err, "consume reset token")
	}
	if err := s.setPassword(ctx, userID, password); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Validation("invalid or expired reset token")
		}
		return err
	}
	l.Info("password_reset_completed", "user_id", userID)
	return nil
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "error", err)
	}
}
