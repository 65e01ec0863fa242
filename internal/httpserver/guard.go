package httpserver

import (
	"context"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/session"
)

// Guard combines role permissions with per-course ownership. The evaluator
// only answers "may this role do X"; whether a course belongs to the caller
// is checked here against course_instructors.
type Guard struct {
	Repo  *repo.GormRepo
	Perms *permission.Evaluator
}

func (g *Guard) Can(su *session.SessionUser, perms ...permission.Permission) bool {
	if su == nil {
		return false
	}
	for _, r := range su.PermissionRoles() {
		if g.Perms.HasAny(r, perms...) {
			return true
		}
	}
	return false
}

func (g *Guard) Require(su *session.SessionUser, perms ...permission.Permission) error {
	if su == nil {
		return apperr.Unauthorized("authentication required")
	}
	if !g.Can(su, perms...) {
		return apperr.Forbidden("insufficient permissions")
	}
	return nil
}

// CourseAccess loads the course and allows the caller when they hold the
// all-scope permission, or the own-scope one and teach the course.
func (g *Guard) CourseAccess(ctx context.Context, su *session.SessionUser, courseID uint, own, all permission.Permission) (*models.Course, error) {
	if su == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	course, err := g.Repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if g.Can(su, all) {
		return course, nil
	}
	if g.Can(su, own) {
		ok, err := g.Repo.IsCourseInstructor(ctx, courseID, su.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return course, nil
		}
	}
	return nil, apperr.Forbidden("you do not have access to this course")
}

// CourseMember allows course staff, callers who can see every course, and
// students enrolled in it while in the student view.
func (g *Guard) CourseMember(ctx context.Context, su *session.SessionUser, courseID uint) (*models.Course, error) {
	if su == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	course, err := g.Repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if g.Can(su, permission.CoursesViewAll) {
		return course, nil
	}

	var ok bool
	switch su.CurrentView {
	case models.UserTypeInstructor:
		ok, err = g.Repo.IsCourseInstructor(ctx, courseID, su.ID)
	case models.UserTypeStudent:
		ok, err = g.Repo.IsEnrolled(ctx, courseID, su.ID)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("you are not a member of this course")
	}
	return course, nil
}

// CanModerate reports whether su may edit or delete content written by
// authorID in the course.
func (g *Guard) CanModerate(ctx context.Context, su *session.SessionUser, courseID, authorID uint) (bool, error) {
	if su.ID == authorID || g.Can(su, permission.ForumModerateAll) {
		return true, nil
	}
	if !g.Can(su, permission.ForumModerateOwn) {
		return false, nil
	}
	return g.Repo.IsCourseInstructor(ctx, courseID, su.ID)
}
