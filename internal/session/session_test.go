package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/testdb"
	"github.com/Skotchmaster/coursehub/internal/tokens"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	repo     *repo.GormRepo
	codec    *tokens.Codec
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := repo.New(testdb.Open(t))
	codec, err := tokens.NewCodec(secret, "coursehub", time.Hour)
	require.NoError(t, err)
	return &fixture{repo: r, codec: codec, resolver: NewResolver(codec, r)}
}

func (f *fixture) user(t *testing.T, email string, student, instructor bool, tier models.InstructorTier, tags ...models.RoleTag) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FirstName: "F", LastName: "L", IsActive: true}
	require.NoError(t, f.repo.CreateAccount(context.Background(), repo.NewAccount{
		User: u, Roles: tags, Student: student, Instructor: instructor, InstructorTier: tier,
	}))
	return u
}

func (f *fixture) token(t *testing.T, id uint, kind, view models.UserType) string {
	t.Helper()
	tok, _, err := f.codec.Mint(tokens.Claims{UserID: id, UserType: kind, CurrentView: view}, 0)
	require.NoError(t, err)
	return tok
}

func TestGetSession_RejectsBadTokensWithoutError(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "s@example.com", true, false, "")
	ctx := context.Background()

	foreign, err := tokens.NewCodec([]byte("another-secret-another-secret-xx"), "coursehub", time.Hour)
	require.NoError(t, err)
	forged, _, err := foreign.Mint(tokens.Claims{UserID: u.ID, UserType: models.UserTypeStudent}, 0)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":   "",
		"garbage": "not-a-token",
		"forged":  forged,
	} {
		su, err := f.resolver.GetSession(ctx, tok)
		assert.NoError(t, err, name)
		assert.Nil(t, su, name)
	}
}

func TestGetSession_Expired(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "s@example.com", true, false, "")

	short, err := tokens.NewCodec(secret, "coursehub", time.Millisecond)
	require.NoError(t, err)
	tok, _, err := short.Mint(tokens.Claims{UserID: u.ID, UserType: models.UserTypeStudent}, time.Millisecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	su, err := f.resolver.GetSession(context.Background(), tok)
	assert.NoError(t, err)
	assert.Nil(t, su)
}

func TestGetSession_Valid(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "s@example.com", true, false, "", models.TagStudent)

	su, err := f.resolver.GetSession(context.Background(), f.token(t, u.ID, models.UserTypeStudent, ""))
	require.NoError(t, err)
	require.NotNil(t, su)
	assert.Equal(t, u.ID, su.ID)
	assert.Equal(t, models.UserTypeStudent, su.CurrentView)
	assert.True(t, su.HasStudentProfile)
	assert.False(t, su.HasInstructorProfile)
	assert.Equal(t, []models.RoleTag{models.TagStudent}, su.Roles)
	assert.Equal(t, permission.RoleStudent, su.Role())
}

func TestGetSession_InactiveOrDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "s@example.com", true, false, "")
	tok := f.token(t, u.ID, models.UserTypeStudent, models.UserTypeStudent)

	_, err := f.repo.UpdateUser(ctx, u.ID, repo.UserUpdate{Fields: map[string]any{"is_active": false}})
	require.NoError(t, err)
	su, err := f.resolver.GetSession(ctx, tok)
	assert.NoError(t, err)
	assert.Nil(t, su)

	require.NoError(t, f.repo.DeleteUser(ctx, u.ID))
	su, err = f.resolver.GetSession(ctx, tok)
	assert.NoError(t, err)
	assert.Nil(t, su)
}

func TestGetSession_ClaimsMustMatchProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	instructor := f.user(t, "i@example.com", false, true, "")

	// a stale student claim for an instructor-only account
	su, err := f.resolver.GetSession(ctx, f.token(t, instructor.ID, models.UserTypeStudent, ""))
	assert.NoError(t, err)
	assert.Nil(t, su)

	// a view the account has no profile for
	su, err = f.resolver.GetSession(ctx, f.token(t, instructor.ID, models.UserTypeInstructor, models.UserTypeStudent))
	assert.NoError(t, err)
	assert.Nil(t, su)
}

func TestGetSession_RevokedTagEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "i@example.com", true, true, models.TierAdmin)
	tok := f.token(t, u.ID, models.UserTypeInstructor, models.UserTypeInstructor)

	su, err := f.resolver.GetSession(ctx, tok)
	require.NoError(t, err)
	require.NotNil(t, su)
	assert.Equal(t, permission.RoleAdmin, su.Role())

	_, err = f.repo.UpdateUser(ctx, u.ID, repo.UserUpdate{Roles: []models.RoleTag{models.TagStudent}})
	require.NoError(t, err)

	su, err = f.resolver.GetSession(ctx, tok)
	assert.NoError(t, err)
	assert.Nil(t, su, "instructor token must not outlive the instructor tag")

	// the student view of the same account still resolves, without the tier
	su, err = f.resolver.GetSession(ctx, f.token(t, u.ID, models.UserTypeStudent, ""))
	require.NoError(t, err)
	require.NotNil(t, su)
	assert.False(t, su.HasInstructorProfile)
	assert.Empty(t, su.InstructorTier)
}

func TestGetSession_DualRoleViewSwitch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "dual@example.com", true, true, "")

	asInstructor, err := f.resolver.GetSession(ctx, f.token(t, u.ID, models.UserTypeInstructor, models.UserTypeInstructor))
	require.NoError(t, err)
	asStudent, err := f.resolver.GetSession(ctx, f.token(t, u.ID, models.UserTypeInstructor, models.UserTypeStudent))
	require.NoError(t, err)
	require.NotNil(t, asInstructor)
	require.NotNil(t, asStudent)

	assert.Equal(t, models.UserTypeInstructor, asInstructor.CurrentView)
	assert.Equal(t, models.UserTypeStudent, asStudent.CurrentView)

	// only the view differs
	asStudent.CurrentView = asInstructor.CurrentView
	assert.Equal(t, asInstructor, asStudent)
}

type failingStore struct{ CredentialStore }

func (failingStore) GetUserByID(context.Context, uint) (*models.User, error) {
	return nil, apperr.Wrap(errors.New("connection reset"), "user query failed")
}

func TestGetSession_StoreErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.codec, failingStore{})

	su, err := r.GetSession(context.Background(), f.token(t, 7, models.UserTypeStudent, ""))
	assert.Nil(t, su)
	assert.Error(t, err)
}

func TestRole_Derivation(t *testing.T) {
	tests := []struct {
		name      string
		su        SessionUser
		want      permission.Role
		wantAdmin bool
	}{
		{"student view", SessionUser{CurrentView: models.UserTypeStudent, InstructorTier: models.TierAdmin}, permission.RoleStudent, false},
		{"instructor", SessionUser{CurrentView: models.UserTypeInstructor, InstructorTier: models.TierInstructor}, permission.RoleInstructor, false},
		{"admin tier", SessionUser{CurrentView: models.UserTypeInstructor, InstructorTier: models.TierAdmin}, permission.RoleAdmin, true},
		{"super admin tag", SessionUser{CurrentView: models.UserTypeInstructor, Roles: []models.RoleTag{models.TagSuperAdmin}}, permission.RoleSuperAdmin, true},
		{"billing admin stays instructor", SessionUser{CurrentView: models.UserTypeInstructor, Roles: []models.RoleTag{models.TagBillingAdmin}}, permission.RoleInstructor, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.su.Role())
			assert.Equal(t, tt.wantAdmin, tt.su.IsAdmin())
		})
	}

	billing := SessionUser{CurrentView: models.UserTypeStudent, Roles: []models.RoleTag{models.TagBillingAdmin}}
	assert.Equal(t, []permission.Role{permission.RoleStudent, permission.RoleBillingAdmin}, billing.PermissionRoles())
}

func TestMiddlewareAndRequireHelpers(t *testing.T) {
	f := newFixture(t)
	e := echo.New()
	student := f.user(t, "s@example.com", true, false, "")
	admin := f.user(t, "a@example.com", false, true, models.TierAdmin)

	run := func(token string, check func(c echo.Context) error) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		}
		c := e.NewContext(req, httptest.NewRecorder())
		return f.resolver.Middleware()(check)(c)
	}

	err := run("", func(c echo.Context) error {
		assert.Nil(t, FromContext(c))
		_, err := RequireSession(c)
		return err
	})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	err = run(f.token(t, student.ID, models.UserTypeStudent, ""), func(c echo.Context) error {
		su, err := RequireUserType(c, models.UserTypeStudent)
		require.NoError(t, err)
		assert.Equal(t, student.ID, su.ID)
		_, err = RequireUserType(c, models.UserTypeInstructor)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		_, err = RequireAdmin(c)
		return err
	})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	err = run(f.token(t, admin.ID, models.UserTypeInstructor, ""), func(c echo.Context) error {
		_, err := RequireAdmin(c)
		return err
	})
	assert.NoError(t, err)
}
