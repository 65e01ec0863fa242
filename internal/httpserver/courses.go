package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/export"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/search"
	"github.com/Skotchmaster/coursehub/internal/service"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
	"github.com/Skotchmaster/coursehub/internal/util"
)

type CourseHTTP struct {
	Svc    *service.CourseService
	Repo   *repo.GormRepo
	Guard  *Guard
	Search search.Searcher
}

func (h *CourseHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	page, offset, limit := util.ParsePage(c.QueryParam("page"), c.QueryParam("size"))

	items, total, err := h.Repo.ListPublishedCourses(ctx, offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.NewPage(page, offset, limit, total),
	})
}

func (h *CourseHTTP) SearchCourses(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.search")

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apperr.Validation("q is required")
	}
	page, offset, limit := util.ParsePage(c.QueryParam("page"), c.QueryParam("size"))

	total, docs, err := h.Search.SearchCourses(ctx, q, offset, limit)
	if errors.Is(err, search.ErrDisabled) {
		return echo.NewHTTPError(http.StatusServiceUnavailable)
	}
	if err != nil {
		l.Error("search_failed", "status", http.StatusInternalServerError, "error", err)
		return apperr.Wrap(err, "search courses")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": docs,
		"meta": util.NewPage(page, offset, limit, total),
	})
}

// Mine lists the courses taught in the instructor view and the enrolled ones
// in the student view.
func (h *CourseHTTP) Mine(c echo.Context) error {
	su, err := session.RequireSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var courses []models.Course
	if su.CurrentView == models.UserTypeInstructor {
		courses, err = h.Repo.ListInstructorCourses(ctx, su.ID)
	} else {
		courses, err = h.Repo.ListStudentCourses(ctx, su.ID)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": courses})
}

// Get shows published courses to everyone; drafts only to staff who could
// edit them. Everyone else gets a 404.
func (h *CourseHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	course, err := h.Repo.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	if !course.IsPublished {
		su := session.FromContext(c)
		if _, err := h.Guard.CourseAccess(ctx, su, id, permission.CoursesViewOwn, permission.CoursesViewAll); err != nil {
			return apperr.NotFound("course not found")
		}
	}
	return c.JSON(http.StatusOK, course)
}

func (h *CourseHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "courses.create")

	su, err := session.RequireUserType(c, models.UserTypeInstructor)
	if err != nil {
		return err
	}
	if err := h.Guard.Require(su, permission.CoursesCreate); err != nil {
		return err
	}

	var req transport.CreateCourseRequest
	if err := bind(c, &req); err != nil {
		l.Warn("course_create_failed", "status", http.StatusBadRequest, "reason", err.Error())
		return err
	}

	course := &models.Course{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		IsPublished: req.IsPublished,
	}
	if err := h.Svc.Create(ctx, course, su.ID); err != nil {
		return err
	}
	l.Info("course_created", "course_id", course.ID, "user_id", su.ID)
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "course": course})
}

func (h *CourseHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	su := session.FromContext(c)
	if _, err := h.Guard.CourseAccess(ctx, su, id, permission.CoursesEditOwn, permission.CoursesEditAll); err != nil {
		return err
	}

	var req transport.PatchCourseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields := map[string]any{}
	if req.Slug != nil {
		fields["slug"] = *req.Slug
	}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.IsPublished != nil {
		fields["is_published"] = *req.IsPublished
	}

	course, err := h.Svc.Update(ctx, id, fields, su.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "course": course})
}

func (h *CourseHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	su, err := session.RequireSession(c)
	if err != nil {
		return err
	}
	if err := h.Guard.Require(su, permission.CoursesDeleteAll); err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id, su.ID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("course_deleted", "course_id", id, "user_id", su.ID)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *CourseHTTP) AssignInstructor(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	su, err := session.RequireSession(c)
	if err != nil {
		return err
	}
	if err := h.Guard.Require(su, permission.InstructorsAssign); err != nil {
		return err
	}

	var req transport.AssignInstructorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Repo.AssignInstructor(ctx, id, req.UserID); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return apperr.Conflict("user already teaches this course")
		}
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true})
}

func (h *CourseHTTP) RemoveInstructor(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}
	su, err := session.RequireSession(c)
	if err != nil {
		return err
	}
	if err := h.Guard.Require(su, permission.InstructorsAssign); err != nil {
		return err
	}
	if err := h.Repo.RemoveInstructor(ctx, id, userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *CourseHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	su, err := session.RequireUserType(c, models.UserTypeStudent)
	if err != nil {
		return err
	}
	if err := h.Guard.Require(su, permission.CoursesEnroll); err != nil {
		return err
	}
	signup, err := h.Svc.Signup(ctx, id, su.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "signup": signup})
}

func (h *CourseHTTP) CancelSignup(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	su, err := session.RequireUserType(c, models.UserTypeStudent)
	if err != nil {
		return err
	}
	if err := h.Svc.CancelSignup(ctx, id, su.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *CourseHTTP) ListSignups(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Guard.CourseAccess(ctx, session.FromContext(c), id, permission.SignupsViewOwn, permission.SignupsViewAll); err != nil {
		return err
	}
	rows, err := h.Repo.ListSignups(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": rows})
}

func (h *CourseHTTP) ExportSignups(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	course, err := h.Guard.CourseAccess(ctx, session.FromContext(c), id, permission.SignupsViewOwn, permission.SignupsViewAll)
	if err != nil {
		return err
	}
	rows, err := h.Repo.ListSignups(ctx, id)
	if err != nil {
		return err
	}
	data, err := export.Roster(course.Title, rows)
	if err != nil {
		return apperr.Wrap(err, "export signups")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s-signups.xlsx"`, course.Slug))
	return c.Blob(http.StatusOK, export.MIMEXLSX, data)
}
