package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/testdb"
)

func newRepo(t *testing.T) *GormRepo {
	return New(testdb.Open(t))
}

func mkUser(t *testing.T, r *GormRepo, email string, student, instructor bool, tags ...models.RoleTag) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FirstName: "F", LastName: "L", IsActive: true}
	require.NoError(t, r.CreateAccount(context.Background(), NewAccount{
		User: u, Roles: tags, Student: student, Instructor: instructor,
	}))
	return u
}

func TestCreateAccount_ProfilesAndRoles(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	u := mkUser(t, r, "  Dual@Example.com ", true, true, models.TagStudent, models.TagInstructor, models.TagStudent)
	assert.Equal(t, "dual@example.com", u.Email)

	got, err := r.GetUserByEmail(ctx, "DUAL@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)

	has, err := r.HasStudentProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, has)

	ip, err := r.GetInstructorProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, ip)
	assert.Equal(t, models.TierInstructor, ip.Tier)

	tags, err := r.ListRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.RoleTag{models.TagInstructor, models.TagStudent}, tags)
}

func TestCreateAccount_InactiveAndDuplicate(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	u := &models.User{Email: "off@example.com", PasswordHash: "x", FirstName: "F", LastName: "L"}
	require.NoError(t, r.CreateAccount(ctx, NewAccount{User: u, Student: true}))
	got, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	dup := &models.User{Email: "OFF@example.com", PasswordHash: "x", FirstName: "F", LastName: "L", IsActive: true}
	err = r.CreateAccount(ctx, NewAccount{User: dup, Student: true})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	// the failed signup left no half-created profile behind
	var n int64
	require.NoError(t, r.DB.Model(&models.StudentProfile{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestGetUser_NotFoundAndMissingProfile(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	_, err := r.GetUserByID(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	u := mkUser(t, r, "s@example.com", true, false)
	ip, err := r.GetInstructorProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, ip)
}

func TestUpdateUser_FieldsAndRoles(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	u := mkUser(t, r, "a@example.com", true, false, models.TagStudent)

	out, err := r.UpdateUser(ctx, u.ID, UserUpdate{
		Fields: map[string]any{"is_active": false, "first_name": "Ada"},
		Roles:  []models.RoleTag{models.TagBillingAdmin},
	})
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	assert.Equal(t, "Ada", out.FirstName)
	require.Len(t, out.Roles, 1)
	assert.Equal(t, models.TagBillingAdmin, out.Roles[0].Role)

	_, err = r.UpdateUser(ctx, 4242, UserUpdate{Fields: map[string]any{"first_name": "x"}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = r.UpdateUser(ctx, u.ID, UserUpdate{Roles: []models.RoleTag{"owner"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestCreateAccount_TagsAndProfilesStayInStep(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	byFlag := mkUser(t, r, "flag@example.com", true, false)
	tags, err := r.ListRoles(ctx, byFlag.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.RoleTag{models.TagStudent}, tags)

	byTag := mkUser(t, r, "tag@example.com", false, false, models.TagInstructor)
	ip, err := r.GetInstructorProfile(ctx, byTag.ID)
	require.NoError(t, err)
	require.NotNil(t, ip)
	assert.Equal(t, models.TierInstructor, ip.Tier)
	has, err := r.HasStudentProfile(ctx, byTag.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUpdateUser_PromoteAndRetier(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	u := mkUser(t, r, "s@example.com", true, false)

	_, err := r.UpdateUser(ctx, u.ID, UserUpdate{InstructorTier: models.TierAdmin})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	out, err := r.UpdateUser(ctx, u.ID, UserUpdate{
		Roles:          []models.RoleTag{models.TagStudent, models.TagInstructor},
		InstructorTier: models.TierAdmin,
	})
	require.NoError(t, err)
	assert.Len(t, out.Roles, 2)
	ip, err := r.GetInstructorProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, ip)
	assert.Equal(t, models.TierAdmin, ip.Tier)

	// revoking the tag keeps the profile row and a later grant reuses it
	_, err = r.UpdateUser(ctx, u.ID, UserUpdate{Roles: []models.RoleTag{models.TagStudent}})
	require.NoError(t, err)
	tags, err := r.ListRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.RoleTag{models.TagStudent}, tags)

	_, err = r.UpdateUser(ctx, u.ID, UserUpdate{Roles: []models.RoleTag{models.TagStudent, models.TagInstructor}})
	require.NoError(t, err)
	var n int64
	require.NoError(t, r.DB.Model(&models.InstructorProfile{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	ip, err = r.GetInstructorProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TierAdmin, ip.Tier)
}

func TestDeleteUser_Cascades(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	instr := mkUser(t, r, "t@example.com", false, true, models.TagInstructor)
	student := mkUser(t, r, "s@example.com", true, false, models.TagStudent)

	c := &models.Course{Slug: "go-101", Title: "Go", IsPublished: true}
	require.NoError(t, r.CreateCourse(ctx, c, instr.ID))
	_, err := r.Signup(ctx, c.ID, student.ID)
	require.NoError(t, err)
	post := &models.ForumPost{CourseID: c.ID, AuthorID: student.ID, Title: "q", Body: "b"}
	require.NoError(t, r.CreatePost(ctx, post))
	require.NoError(t, r.CreateAnswer(ctx, &models.ForumAnswer{PostID: post.ID, AuthorID: instr.ID, Body: "a"}))

	require.NoError(t, r.DeleteUser(ctx, student.ID))

	_, err = r.GetUserByID(ctx, student.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	enrolled, err := r.IsEnrolled(ctx, c.ID, student.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
	var answers int64
	require.NoError(t, r.DB.Model(&models.ForumAnswer{}).Count(&answers).Error)
	assert.Zero(t, answers)

	assert.True(t, apperr.Is(r.DeleteUser(ctx, student.ID), apperr.KindNotFound))
}

func TestCourses_CreateAssignSignup(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := mkUser(t, r, "o@example.com", false, true)
	other := mkUser(t, r, "x@example.com", false, true)
	student := mkUser(t, r, "s@example.com", true, false)

	c := &models.Course{Slug: "sql", Title: "SQL"}
	require.NoError(t, r.CreateCourse(ctx, c, owner.ID))

	ok, err := r.IsCourseInstructor(ctx, c.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// unpublished courses cannot be joined
	_, err = r.Signup(ctx, c.ID, student.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = r.UpdateCourse(ctx, c.ID, map[string]any{"is_published": true})
	require.NoError(t, err)
	_, err = r.Signup(ctx, c.ID, student.ID)
	require.NoError(t, err)
	_, err = r.Signup(ctx, c.ID, student.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.NoError(t, r.AssignInstructor(ctx, c.ID, other.ID))
	assert.True(t, apperr.Is(r.AssignInstructor(ctx, c.ID, other.ID), apperr.KindConflict))
	assert.True(t, apperr.Is(r.AssignInstructor(ctx, c.ID, student.ID), apperr.KindValidation))
	tags, err := r.ListRoles(ctx, other.ID)
	require.NoError(t, err)
	assert.Contains(t, tags, models.TagInstructor)

	mine, err := r.ListInstructorCourses(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	enrolled, err := r.ListStudentCourses(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)

	rows, err := r.ListSignups(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s@example.com", rows[0].Email)

	require.NoError(t, r.RemoveInstructor(ctx, c.ID, other.ID))
	assert.True(t, apperr.Is(r.RemoveInstructor(ctx, c.ID, other.ID), apperr.KindNotFound))
	require.NoError(t, r.CancelSignup(ctx, c.ID, student.ID))
}

func TestDeleteCourse_RemovesChildrenAndReturnsKeys(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := mkUser(t, r, "o@example.com", false, true)
	c := &models.Course{Slug: "k8s", Title: "K8s", IsPublished: true}
	require.NoError(t, r.CreateCourse(ctx, c, owner.ID))

	require.NoError(t, r.CreateMaterial(ctx, &models.CourseMaterial{
		CourseID: c.ID, DisplayName: "Slides", FileName: "s.pdf", ObjectKey: "courses/1/a-s.pdf",
		URL: "http://cdn/courses/1/a-s.pdf", MimeType: "application/pdf", SizeBytes: 10, UploadedBy: owner.ID,
	}))
	now := time.Now()
	require.NoError(t, r.CreateSession(ctx, &models.CourseSession{CourseID: c.ID, Title: "w1", StartsAt: now, EndsAt: now.Add(time.Hour)}))
	require.NoError(t, r.CreateChecklistItem(ctx, &models.ChecklistItem{CourseID: c.ID, Title: "setup"}))
	post := &models.ForumPost{CourseID: c.ID, AuthorID: owner.ID, Title: "hi", Body: "b"}
	require.NoError(t, r.CreatePost(ctx, post))
	require.NoError(t, r.CreateAnswer(ctx, &models.ForumAnswer{PostID: post.ID, AuthorID: owner.ID, Body: "a"}))

	keys, err := r.DeleteCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"courses/1/a-s.pdf"}, keys)

	for _, m := range []any{&models.CourseMaterial{}, &models.CourseSession{}, &models.ChecklistItem{},
		&models.ForumPost{}, &models.ForumAnswer{}, &models.CourseInstructor{}} {
		var n int64
		require.NoError(t, r.DB.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}

	_, err = r.DeleteCourse(ctx, c.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestChildRows_ScopedToCourse(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := mkUser(t, r, "o@example.com", false, true)
	a := &models.Course{Slug: "a", Title: "A"}
	b := &models.Course{Slug: "b", Title: "B"}
	require.NoError(t, r.CreateCourse(ctx, a, owner.ID))
	require.NoError(t, r.CreateCourse(ctx, b, owner.ID))

	it := &models.ChecklistItem{CourseID: a.ID, Title: "one", Position: 1}
	require.NoError(t, r.CreateChecklistItem(ctx, it))

	_, err := r.UpdateChecklistItem(ctx, b.ID, it.ID, map[string]any{"done": true})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(r.DeleteChecklistItem(ctx, b.ID, it.ID), apperr.KindNotFound))

	out, err := r.UpdateChecklistItem(ctx, a.ID, it.ID, map[string]any{"done": true})
	require.NoError(t, err)
	assert.True(t, out.Done)
}

func TestListPublishedCourses_Paginates(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	owner := mkUser(t, r, "o@example.com", false, true)
	for i, slug := range []string{"c1", "c2", "c3", "draft"} {
		require.NoError(t, r.CreateCourse(ctx, &models.Course{Slug: slug, Title: slug, IsPublished: i < 3}, owner.ID))
	}

	page, total, err := r.ListPublishedCourses(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "c1", page[0].Slug)

	page, _, err = r.ListPublishedCourses(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c3", page[0].Slug)
}
