package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
)

type ChecklistHTTP struct {
	Repo  *repo.GormRepo
	Guard *Guard
}

func (h *ChecklistHTTP) manage(c echo.Context) (uint, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return 0, err
	}
	_, err = h.Guard.CourseAccess(c.Request().Context(), session.FromContext(c), courseID,
		permission.ChecklistManageOwn, permission.ChecklistManageAll)
	return courseID, err
}

func (h *ChecklistHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Guard.CourseMember(ctx, session.FromContext(c), courseID); err != nil {
		return err
	}
	items, err := h.Repo.ListChecklist(ctx, courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *ChecklistHTTP) Create(c echo.Context) error {
	courseID, err := h.manage(c)
	if err != nil {
		return err
	}
	var req transport.ChecklistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	it := &models.ChecklistItem{CourseID: courseID, Title: req.Title, Position: req.Position}
	if err := h.Repo.CreateChecklistItem(c.Request().Context(), it); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "item": it})
}

func (h *ChecklistHTTP) Patch(c echo.Context) error {
	courseID, err := h.manage(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "itemId")
	if err != nil {
		return err
	}
	var req transport.PatchChecklistRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Position != nil {
		fields["position"] = *req.Position
	}
	if req.Done != nil {
		fields["done"] = *req.Done
	}
	it, err := h.Repo.UpdateChecklistItem(c.Request().Context(), courseID, id, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "item": it})
}

func (h *ChecklistHTTP) Delete(c echo.Context) error {
	courseID, err := h.manage(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "itemId")
	if err != nil {
		return err
	}
	if err := h.Repo.DeleteChecklistItem(c.Request().Context(), courseID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
