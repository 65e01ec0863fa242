package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/middleware/csrf"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/service"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	Sessions     *session.Resolver
	CSRF         *csrf.Guard
	CookieSecure bool
}

func (h *AuthHTTP) setSessionCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHTTP) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session reports the current user, or null, together with a CSRF token the
// client must echo on mutating requests.
func (h *AuthHTTP) Session(c echo.Context) error {
	token, err := h.CSRF.Issue(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"user":      session.FromContext(c),
		"csrfToken": token,
	})
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req transport.SignupRequest
	if err := bind(c, &req); err != nil {
		l.Warn("signup_failed", "status", http.StatusBadRequest, "reason", err.Error())
		return err
	}

	user, err := h.Svc.Signup(ctx, service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		UserType:  models.UserType(req.UserType),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "user": user})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		l.Warn("login_failed", "status", http.StatusBadRequest, "reason", err.Error())
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password, models.UserType(req.UserType), c.RealIP())
	if err != nil {
		return err
	}

	su, err := h.Sessions.GetSession(ctx, res.Token)
	if err != nil {
		return err
	}
	if su == nil {
		l.Error("login_failed", "status", http.StatusInternalServerError, "reason", "fresh token did not resolve")
		return apperr.Wrap(errors.New("fresh session token did not resolve"), "login")
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": su})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHTTP) SwitchView(c echo.Context) error {
	ctx := c.Request().Context()
	su, err := session.RequireSession(c)
	if err != nil {
		return err
	}

	var req transport.SwitchViewRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, exp, err := h.Svc.SwitchView(ctx, su, models.UserType(req.View))
	if err != nil {
		return err
	}
	next, err := h.Sessions.GetSession(ctx, token)
	if err != nil {
		return err
	}
	if next == nil {
		return apperr.Unauthorized("session is no longer valid")
	}

	h.setSessionCookie(c, token, exp)
	session.WithUser(c, next)
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": next})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	su, err := session.RequireSession(c)
	if err != nil {
		return err
	}
	var req transport.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Svc.ChangePassword(c.Request().Context(), su.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// RequestReset answers identically whether or not the email is registered.
func (h *AuthHTTP) RequestReset(c echo.Context) error {
	var req transport.ResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.Svc.RequestPasswordReset(c.Request().Context(), req.Email)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHTTP) ConfirmReset(c echo.Context) error {
	var req transport.ResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Svc.ConfirmPasswordReset(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
