package httpserver

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/hash"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
	"github.com/Skotchmaster/coursehub/internal/util"
)

type AdminHTTP struct {
	Repo  *repo.GormRepo
	Guard *Guard
}

func (h *AdminHTTP) require(c echo.Context, p permission.Permission) (*session.SessionUser, error) {
	su, err := session.RequireSession(c)
	if err != nil {
		return nil, err
	}
	if err := h.Guard.Require(su, p); err != nil {
		return nil, err
	}
	return su, nil
}

func roleTags(in []string) []models.RoleTag {
	out := make([]models.RoleTag, 0, len(in))
	for _, r := range in {
		out = append(out, models.RoleTag(r))
	}
	return out
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	if _, err := h.require(c, permission.UsersView); err != nil {
		return err
	}
	page, offset, limit := util.ParsePage(c.QueryParam("page"), c.QueryParam("size"))
	users, total, err := h.Repo.ListUsers(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": util.NewPage(page, offset, limit, total),
	})
}

// CreateUser derives profiles from the role tags: student and instructor tags
// each bring the matching profile.
func (h *AdminHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_user")

	su, err := h.require(c, permission.UsersManage)
	if err != nil {
		return err
	}
	var req transport.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	roles := roleTags(req.Roles)
	if req.InstructorTier != "" && !slices.Contains(roles, models.TagInstructor) {
		return apperr.Validation("instructorTier requires the instructor role")
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return apperr.Wrap(err, "hash password")
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	user := &models.User{
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     active,
	}
	err = h.Repo.CreateAccount(ctx, repo.NewAccount{
		User:           user,
		Roles:          roles,
		InstructorTier: models.InstructorTier(req.InstructorTier),
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return apperr.Conflict("email already registered")
		}
		return err
	}
	created, err := h.Repo.GetUserWithRoles(ctx, user.ID)
	if err != nil {
		return err
	}
	l.Info("user_created", "user_id", created.ID, "by", su.ID)
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "user": created})
}

func (h *AdminHTTP) PatchUser(c echo.Context) error {
	ctx := c.Request().Context()
	su, err := h.require(c, permission.UsersManage)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req transport.PatchUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
	}
	if req.IsActive != nil {
		if id == su.ID && !*req.IsActive {
			return apperr.Validation("cannot deactivate your own account")
		}
		fields["is_active"] = *req.IsActive
	}
	upd := repo.UserUpdate{Fields: fields}
	if req.Roles != nil {
		upd.Roles = roleTags(*req.Roles)
	}
	if req.InstructorTier != nil {
		upd.InstructorTier = models.InstructorTier(*req.InstructorTier)
	}

	user, err := h.Repo.UpdateUser(ctx, id, upd)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("user_updated", "user_id", id, "by", su.ID)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": user})
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	su, err := h.require(c, permission.UsersManage)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if id == su.ID {
		return apperr.Validation("cannot delete your own account")
	}
	if err := h.Repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("user_deleted", "user_id", id, "by", su.ID)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
