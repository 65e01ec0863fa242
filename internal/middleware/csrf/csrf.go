// Package csrf implements a double-submit cookie guard. The token lives in a
// readable cookie and must be echoed back in a header or form field on every
// mutating request.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/logging"
)

const ContextKey = "csrf_token"

type Config struct {
	CookieName string
	HeaderName string
	FormField  string

	CookiePath string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	MaxAge     time.Duration

	EnforceSameOrigin bool

	SkipPaths []string
}

func DefaultConfig() Config {
	return Config{
		CookieName: "XSRF-TOKEN",
		HeaderName: "X-CSRF-Token",
		FormField:  "csrf_token",
		CookiePath: "/",
		Secure:     true,
		SameSite:   http.SameSiteLaxMode,
		MaxAge:     24 * time.Hour,
	}
}

type Guard struct {
	cfg  Config
	skip map[string]struct{}
}

func New(cfg Config) *Guard {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.FormField == "" {
		cfg.FormField = def.FormField
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return &Guard{cfg: cfg, skip: skip}
}

// Issue returns the caller's current token, minting and setting a fresh cookie
// when none is present. An existing token is reused and its cookie refreshed.
func (g *Guard) Issue(c echo.Context) (string, error) {
	if v, ok := c.Get(ContextKey).(string); ok && v != "" {
		return v, nil
	}
	token := readCookie(c.Request(), g.cfg.CookieName)
	if token == "" {
		var err error
		token, err = newToken(32)
		if err != nil {
			return "", apperr.Wrap(err, "failed to create CSRF token")
		}
	}
	g.setCookie(c, token)
	c.Set(ContextKey, token)
	return token, nil
}

// Verify reports whether the request carries a non-empty cookie token that is
// byte-identical to the submitted header or form value.
func (g *Guard) Verify(req *http.Request) bool {
	cookie := readCookie(req, g.cfg.CookieName)
	if cookie == "" {
		return false
	}
	provided := req.Header.Get(g.cfg.HeaderName)
	if provided == "" {
		provided = req.FormValue(g.cfg.FormField)
	}
	return secureCompare(cookie, provided)
}

func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if _, ok := g.skip[req.URL.Path]; ok || isSafe(req.Method) {
				return next(c)
			}

			l := logging.FromContext(req.Context())
			if g.cfg.EnforceSameOrigin && !sameOrigin(req) {
				l.Warn("csrf_rejected", "status", http.StatusForbidden, "reason", "origin mismatch")
				return apperr.Forbidden("invalid CSRF token")
			}
			if !g.Verify(req) {
				l.Warn("csrf_rejected", "status", http.StatusForbidden, "reason", "token mismatch")
				return apperr.Forbidden("invalid CSRF token")
			}
			return next(c)
		}
	}
}

func isSafe(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (g *Guard) setCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     g.cfg.CookiePath,
		Domain:   g.cfg.Domain,
		Secure:   g.cfg.Secure,
		HttpOnly: false,
		MaxAge:   int(g.cfg.MaxAge.Seconds()),
		SameSite: g.cfg.SameSite,
	})
}

func readCookie(req *http.Request, name string) string {
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func secureCompare(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
		if origin == "" {
			return false
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, schemeOf(r)) && strings.EqualFold(u.Host, r.Host)
}

func schemeOf(r *http.Request) string {
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
