package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
)

type ScheduleHTTP struct {
	Repo  *repo.GormRepo
	Guard *Guard
}

func (h *ScheduleHTTP) manage(c echo.Context) (uint, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return 0, err
	}
	_, err = h.Guard.CourseAccess(c.Request().Context(), session.FromContext(c), courseID,
		permission.SessionsManageOwn, permission.SessionsManageAll)
	return courseID, err
}

func (h *ScheduleHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Guard.CourseMember(ctx, session.FromContext(c), courseID); err != nil {
		return err
	}
	items, err := h.Repo.ListSessions(ctx, courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *ScheduleHTTP) Create(c echo.Context) error {
	courseID, err := h.manage(c)
	if err != nil {
		return err
	}
	var req transport.SessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	s := &models.CourseSession{
		CourseID:   courseID,
		Title:      req.Title,
		StartsAt:   req.StartsAt.UTC(),
		EndsAt:     req.EndsAt.UTC(),
		Location:   req.Location,
		MeetingURL: req.MeetingURL,
	}
	if err := h.Repo.CreateSession(c.Request().Context(), s); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "session": s})
}

func (h *ScheduleHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, err := h.manage(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "sessionId")
	if err != nil {
		return err
	}
	var req transport.PatchSessionRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cur, err := h.Repo.GetSession(ctx, courseID, id)
	if err != nil {
		return err
	}
	starts, ends := cur.StartsAt, cur.EndsAt
	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.StartsAt != nil {
		starts = req.StartsAt.UTC()
		fields["starts_at"] = starts
	}
	if req.EndsAt != nil {
		ends = req.EndsAt.UTC()
		fields["ends_at"] = ends
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	if req.MeetingURL != nil {
		fields["meeting_url"] = *req.MeetingURL
	}
	if !ends.After(starts) {
		return apperr.Validation("endsAt must be after startsAt")
	}

	s, err := h.Repo.UpdateSession(ctx, courseID, id, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "session": s})
}

func (h *ScheduleHTTP) Delete(c echo.Context) error {
	courseID, err := h.manage(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "sessionId")
	if err != nil {
		return err
	}
	if err := h.Repo.DeleteSession(c.Request().Context(), courseID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
