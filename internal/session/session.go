// Package session turns the session cookie into a SessionUser. The token is
// only a pointer at an account: the user, their profiles and role tags are
// reloaded from the credential store on every request.
package session

import (
	"context"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/tokens"
)

const (
	CookieName = "session"
	contextKey = "session_user"
)

type CredentialStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	HasStudentProfile(ctx context.Context, userID uint) (bool, error)
	GetInstructorProfile(ctx context.Context, userID uint) (*models.InstructorProfile, error)
	ListRoles(ctx context.Context, userID uint) ([]models.RoleTag, error)
}

type SessionUser struct {
	ID                   uint                  `json:"id"`
	Email                string                `json:"email"`
	FirstName            string                `json:"firstName"`
	LastName             string                `json:"lastName"`
	UserType             models.UserType       `json:"userType"`
	CurrentView          models.UserType       `json:"currentView"`
	HasStudentProfile    bool                  `json:"hasStudentProfile"`
	HasInstructorProfile bool                  `json:"hasInstructorProfile"`
	InstructorTier       models.InstructorTier `json:"instructorTier,omitempty"`
	Roles                []models.RoleTag      `json:"roles"`
}

func (u *SessionUser) HasTag(tag models.RoleTag) bool {
	return slices.Contains(u.Roles, tag)
}

func (u *SessionUser) HasProfile(kind models.UserType) bool {
	switch kind {
	case models.UserTypeStudent:
		return u.HasStudentProfile
	case models.UserTypeInstructor:
		return u.HasInstructorProfile
	}
	return false
}

// Role collapses the instructor tier and the super_admin tag into the single
// permission role of the current view.
func (u *SessionUser) Role() permission.Role {
	if u.CurrentView != models.UserTypeInstructor {
		return permission.RoleStudent
	}
	switch {
	case u.HasTag(models.TagSuperAdmin):
		return permission.RoleSuperAdmin
	case u.InstructorTier == models.TierAdmin:
		return permission.RoleAdmin
	}
	return permission.RoleInstructor
}

// PermissionRoles is the view role plus the account-wide platform roles.
// Platform tags hold regardless of the current view.
func (u *SessionUser) PermissionRoles() []permission.Role {
	out := []permission.Role{u.Role()}
	if u.HasTag(models.TagSuperAdmin) && out[0] != permission.RoleSuperAdmin {
		out = append(out, permission.RoleSuperAdmin)
	}
	if u.HasTag(models.TagBillingAdmin) {
		out = append(out, permission.RoleBillingAdmin)
	}
	return out
}

func (u *SessionUser) IsAdmin() bool {
	r := u.Role()
	return r == permission.RoleAdmin || r == permission.RoleSuperAdmin
}

type Resolver struct {
	Codec *tokens.Codec
	Store CredentialStore
}

func NewResolver(codec *tokens.Codec, store CredentialStore) *Resolver {
	return &Resolver{Codec: codec, Store: store}
}

// GetSession returns nil without error for any token that does not map to a
// live account whose tagged profiles match the claims. Store failures are
// returned.
func (r *Resolver) GetSession(ctx context.Context, token string) (*SessionUser, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := r.Codec.Verify(token)
	if err != nil {
		return nil, nil
	}

	u, err := r.Store.GetUserByID(ctx, claims.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}

	hasStudent, err := r.Store.HasStudentProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	ip, err := r.Store.GetInstructorProfile(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	tags, err := r.Store.ListRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	su := &SessionUser{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		UserType:    claims.UserType,
		CurrentView: claims.CurrentView,
		Roles:       tags,
	}
	if su.Roles == nil {
		su.Roles = []models.RoleTag{}
	}
	// A profile only counts while its tag is held, so revoking a tag ends
	// sessions minted before the change.
	su.HasStudentProfile = hasStudent && su.HasTag(models.TagStudent)
	su.HasInstructorProfile = ip != nil && su.HasTag(models.TagInstructor)
	if su.HasInstructorProfile {
		su.InstructorTier = ip.Tier
	}
	if su.CurrentView == "" {
		su.CurrentView = su.UserType
	}

	if !su.HasProfile(su.UserType) || !su.HasProfile(su.CurrentView) {
		return nil, nil
	}
	return su, nil
}

// Middleware resolves the session cookie once and stores the result on the
// request context. Requests without a valid session pass through with none.
func (r *Resolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			if ck, err := c.Cookie(CookieName); err == nil {
				token = ck.Value
			}
			su, err := r.GetSession(c.Request().Context(), token)
			if err != nil {
				logging.FromContext(c.Request().Context()).Error("session_resolve_failed", "error", err)
				return apperr.Wrap(err, "resolve session")
			}
			if su != nil {
				c.Set(contextKey, su)
			}
			return next(c)
		}
	}
}

func FromContext(c echo.Context) *SessionUser {
	su, _ := c.Get(contextKey).(*SessionUser)
	return su
}

func WithUser(c echo.Context, su *SessionUser) {
	c.Set(contextKey, su)
}

func RequireSession(c echo.Context) (*SessionUser, error) {
	su := FromContext(c)
	if su == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	return su, nil
}

// RequireUserType checks the current view, so a dual-role user has to switch
// view before acting as the other kind.
func RequireUserType(c echo.Context, kind models.UserType) (*SessionUser, error) {
	su, err := RequireSession(c)
	if err != nil {
		return nil, err
	}
	if su.CurrentView != kind {
		return nil, apperr.Forbidden(string(kind) + " access required")
	}
	return su, nil
}

func RequireAdmin(c echo.Context) (*SessionUser, error) {
	su, err := RequireSession(c)
	if err != nil {
		return nil, err
	}
	if !su.IsAdmin() {
		return nil, apperr.Forbidden("admin access required")
	}
	return su, nil
}
