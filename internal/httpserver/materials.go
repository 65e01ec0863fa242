package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/service"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
)

type MaterialHTTP struct {
	Svc   *service.CourseService
	Repo  *repo.GormRepo
	Guard *Guard
}

func (h *MaterialHTTP) manage(c echo.Context) (courseID uint, su *session.SessionUser, err error) {
	courseID, err = paramID(c, "id")
	if err != nil {
		return 0, nil, err
	}
	su = session.FromContext(c)
	_, err = h.Guard.CourseAccess(c.Request().Context(), su, courseID, permission.MaterialsManageOwn, permission.MaterialsManageAll)
	return courseID, su, err
}

func (h *MaterialHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.Guard.CourseMember(ctx, session.FromContext(c), courseID); err != nil {
		return err
	}
	items, err := h.Repo.ListMaterials(ctx, courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *MaterialHTTP) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "materials.upload")

	courseID, su, err := h.manage(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn("upload_failed", "status", http.StatusBadRequest, "reason", "missing file", "error", err)
		return apperr.Validation("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Wrap(err, "open upload")
	}
	defer f.Close()

	m, err := h.Svc.UploadMaterial(ctx, service.Upload{
		CourseID:    courseID,
		UploaderID:  su.ID,
		FileName:    fh.Filename,
		DisplayName: c.FormValue("displayName"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "material": m})
}

func (h *MaterialHTTP) Patch(c echo.Context) error {
	courseID, _, err := h.manage(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "materialId")
	if err != nil {
		return err
	}
	var req transport.PatchMaterialRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields := map[string]any{}
	if req.DisplayName != nil {
		fields["display_name"] = *req.DisplayName
	}
	m, err := h.Repo.UpdateMaterial(c.Request().Context(), courseID, id, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "material": m})
}

func (h *MaterialHTTP) Delete(c echo.Context) error {
	courseID, _, err := h.manage(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "materialId")
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteMaterial(c.Request().Context(), courseID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
