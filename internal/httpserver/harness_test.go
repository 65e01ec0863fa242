package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/coursehub/internal/events"
	"github.com/Skotchmaster/coursehub/internal/hash"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/middleware/csrf"
	"github.com/Skotchmaster/coursehub/internal/middleware/metrics"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/ratelimit"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/reset"
	"github.com/Skotchmaster/coursehub/internal/search"
	"github.com/Skotchmaster/coursehub/internal/service"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/storage"
	"github.com/Skotchmaster/coursehub/internal/testdb"
	"github.com/Skotchmaster/coursehub/internal/tokens"
)

const (
	testPassword = "correct horse"
	testCSRF     = "test-csrf-token-value"
)

type sentMail struct{ to, token string }

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, token})
	return nil
}

type nopIndex struct{}

func (nopIndex) IndexCourse(context.Context, *models.Course) error { return nil }
func (nopIndex) DeleteCourse(context.Context, uint) error         { return nil }
func (nopIndex) SearchCourses(context.Context, string, int, int) (int64, []search.CourseDoc, error) {
	return 0, nil, nil
}

type harness struct {
	e      *echo.Echo
	repo   *repo.GormRepo
	codec  *tokens.Codec
	mail   *fakeMailer
	store  *storage.Memory
	events *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	codec, err := tokens.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "coursehub", time.Hour)
	require.NoError(t, err)

	h := &harness{
		repo:   repo.New(testdb.Open(t)),
		codec:  codec,
		mail:   &fakeMailer{},
		store:  storage.NewMemory("http://cdn.local"),
		events: &events.Recorder{},
	}

	resolver := session.NewResolver(codec, h.repo)
	guard := &Guard{Repo: h.repo, Perms: permission.NewEvaluator()}
	csrfGuard := csrf.New(csrf.Config{Secure: false})
	m := metrics.New("test")

	authSvc := &service.AuthService{
		Repo:    h.repo,
		Codec:   codec,
		Limiter: ratelimit.New(rdb, ratelimit.Config{MaxAttempts: 5, Cooldown: time.Minute}),
		Resets:  reset.NewStore(rdb, time.Hour),
		Mailer:  h.mail,
		Events:  h.events,
		Metrics: m,
	}
	courseSvc := &service.CourseService{
		Repo:           h.repo,
		Index:          nopIndex{},
		Events:         h.events,
		Store:          h.store,
		UploadMaxBytes: 1 << 20,
	}

	h.e = echo.New()
	Register(h.e, &Deps{
		Logger:         logging.NewWithWriter(io.Discard, "error"),
		Metrics:        m,
		CSRF:           csrfGuard,
		Session:        resolver,
		UploadMaxBytes: courseSvc.UploadMaxBytes,
		Auth:           &AuthHTTP{Svc: authSvc, Sessions: resolver, CSRF: csrfGuard},
		Courses:        &CourseHTTP{Svc: courseSvc, Repo: h.repo, Guard: guard, Search: nopIndex{}},
		Materials:      &MaterialHTTP{Svc: courseSvc, Repo: h.repo, Guard: guard},
		Schedule:       &ScheduleHTTP{Repo: h.repo, Guard: guard},
		Forum:          &ForumHTTP{Repo: h.repo, Guard: guard},
		Checklist:      &ChecklistHTTP{Repo: h.repo, Guard: guard},
		Admin:          &AdminHTTP{Repo: h.repo, Guard: guard},
	})
	return h
}

// send attaches a valid CSRF cookie and header pair to every request.
func (h *harness) send(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: csrf.DefaultConfig().CookieName, Value: testCSRF})
	req.Header.Set(csrf.DefaultConfig().HeaderName, testCSRF)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return h.send(req, cookies...)
}

func (h *harness) user(t *testing.T, email string, student, instructor bool, tier models.InstructorTier, tags ...models.RoleTag) *models.User {
	t.Helper()
	pw, err := hash.HashPassword(testPassword)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: pw, FirstName: "Test", LastName: "User", IsActive: true}
	require.NoError(t, h.repo.CreateAccount(context.Background(), repo.NewAccount{
		User: u, Roles: tags, Student: student, Instructor: instructor, InstructorTier: tier,
	}))
	return u
}

func (h *harness) login(t *testing.T, email, userType string) *http.Cookie {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": email, "password": testPassword, "userType": userType,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ck := cookieFrom(rec, session.CookieName)
	require.NotNil(t, ck, "login must set the session cookie")
	return ck
}

func (h *harness) course(t *testing.T, slug string, published bool, creatorID uint) *models.Course {
	t.Helper()
	c := &models.Course{Slug: slug, Title: "Course " + slug, IsPublished: published}
	require.NoError(t, h.repo.CreateCourse(context.Background(), c, creatorID))
	return c
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
