package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
)

func TestAdmin_SuperAdminCannotDeleteSelf(t *testing.T) {
	h := newHarness(t)
	root := h.user(t, "root@example.com", false, true, models.TierAdmin, models.TagInstructor, models.TagSuperAdmin)
	victim := h.user(t, "victim@example.com", true, false, "", models.TagStudent)
	ck := h.login(t, "root@example.com", "instructor")

	rec := h.do(t, http.MethodDelete, fmt.Sprintf("/admin/users/%d", root.ID), nil, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"cannot delete your own account"}`, rec.Body.String())
	_, err := h.repo.GetUserByID(context.Background(), root.ID)
	require.NoError(t, err, "account must remain")

	rec = h.do(t, http.MethodDelete, fmt.Sprintf("/admin/users/%d", victim.ID), nil, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err = h.repo.GetUserByID(context.Background(), victim.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdmin_PermissionsByRole(t *testing.T) {
	h := newHarness(t)
	h.user(t, "courseadmin@example.com", false, true, models.TierAdmin, models.TagInstructor)
	h.user(t, "billing@example.com", true, false, "", models.TagStudent, models.TagBillingAdmin)
	h.user(t, "i@example.com", false, true, models.TierInstructor, models.TagInstructor)

	instr := h.login(t, "i@example.com", "instructor")
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/admin/users", nil, instr).Code)

	billing := h.login(t, "billing@example.com", "student")
	rec := h.do(t, http.MethodGet, "/admin/users?page=1&size=2", nil, billing)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(3), body["meta"].(map[string]any)["total"])
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/admin/users", map[string]any{}, billing).Code)

	admin := h.login(t, "courseadmin@example.com", "instructor")
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/admin/users", nil, admin).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodDelete, "/admin/users/3", nil, admin).Code)
}

func TestAdmin_CreateAndPatchUser(t *testing.T) {
	h := newHarness(t)
	root := h.user(t, "root@example.com", false, true, models.TierAdmin, models.TagInstructor, models.TagSuperAdmin)
	ck := h.login(t, "root@example.com", "instructor")

	rec := h.do(t, http.MethodPost, "/admin/users", map[string]any{
		"email": "New@Example.com", "password": testPassword, "firstName": "N", "lastName": "U",
		"roles": []string{"instructor"}, "instructorTier": "admin", "isActive": false,
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, false, user["isActive"])
	id := uint(user["id"].(float64))

	prof, err := h.repo.GetInstructorProfile(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, prof)
	assert.Equal(t, models.TierAdmin, prof.Tier)

	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%d", id), map[string]any{
		"isActive": true, "roles": []string{"instructor", "billing_admin"},
	}, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	roles, err := h.repo.ListRoles(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []models.RoleTag{models.TagBillingAdmin, models.TagInstructor}, roles)

	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%d", root.ID), map[string]any{"isActive": false}, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, "/admin/users/9999", map[string]any{"firstName": "X"}, ck)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_CreateUserRejectsTierWithoutInstructorRole(t *testing.T) {
	h := newHarness(t)
	h.user(t, "root@example.com", false, true, models.TierAdmin, models.TagInstructor, models.TagSuperAdmin)
	ck := h.login(t, "root@example.com", "instructor")

	rec := h.do(t, http.MethodPost, "/admin/users", map[string]any{
		"email": "s@example.com", "password": testPassword, "firstName": "S", "lastName": "U",
		"roles": []string{"student"}, "instructorTier": "admin",
	}, ck)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"error":"instructorTier requires the instructor role"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/admin/users", map[string]any{
		"email": "s@example.com", "password": testPassword, "firstName": "S", "lastName": "U",
		"roles": []string{"student"},
	}, ck)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := uint(decode(t, rec)["user"].(map[string]any)["id"].(float64))
	has, err := h.repo.HasStudentProfile(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, has)
	prof, err := h.repo.GetInstructorProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, prof)
}

func TestAdmin_PromoteStudentToInstructor(t *testing.T) {
	h := newHarness(t)
	h.user(t, "root@example.com", false, true, models.TierAdmin, models.TagInstructor, models.TagSuperAdmin)
	s := h.user(t, "s@example.com", true, false, "", models.TagStudent)
	ck := h.login(t, "root@example.com", "instructor")

	rec := h.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%d", s.ID), map[string]any{"instructorTier": "admin"}, ck)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%d", s.ID), map[string]any{
		"roles": []string{"student", "instructor"}, "instructorTier": "admin",
	}, ck)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	promoted := h.login(t, "s@example.com", "instructor")
	rec = h.do(t, http.MethodGet, "/auth/session", nil, promoted)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "admin", decode(t, rec)["user"].(map[string]any)["instructorTier"])
}

func TestAdmin_DemotedInstructorLosesAccess(t *testing.T) {
	h := newHarness(t)
	h.user(t, "root@example.com", false, true, models.TierAdmin, models.TagInstructor, models.TagSuperAdmin)
	i := h.user(t, "i@example.com", true, true, models.TierInstructor, models.TagStudent, models.TagInstructor)
	root := h.login(t, "root@example.com", "instructor")
	old := h.login(t, "i@example.com", "instructor")

	rec := h.do(t, http.MethodPost, "/courses", map[string]any{"slug": "before", "title": "Before"}, old)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%d", i.ID), map[string]any{"roles": []string{"student"}}, root)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/courses", map[string]any{"slug": "after", "title": "After"}, old)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "i@example.com", "password": testPassword, "userType": "instructor",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// the student side of the account is untouched
	h.login(t, "i@example.com", "student")
}
