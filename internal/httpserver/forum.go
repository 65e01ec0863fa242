package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/permission"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/session"
	"github.com/Skotchmaster/coursehub/internal/transport"
)

type ForumHTTP struct {
	Repo  *repo.GormRepo
	Guard *Guard
}

// member resolves the course id and confirms the caller may read its forum.
func (h *ForumHTTP) member(c echo.Context) (uint, *session.SessionUser, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return 0, nil, err
	}
	su := session.FromContext(c)
	if _, err := h.Guard.CourseMember(c.Request().Context(), su, courseID); err != nil {
		return 0, nil, err
	}
	return courseID, su, nil
}

func (h *ForumHTTP) participant(c echo.Context) (uint, *session.SessionUser, error) {
	courseID, su, err := h.member(c)
	if err != nil {
		return 0, nil, err
	}
	if err := h.Guard.Require(su, permission.ForumParticipate); err != nil {
		return 0, nil, err
	}
	return courseID, su, nil
}

func (h *ForumHTTP) moderate(ctx context.Context, su *session.SessionUser, courseID, authorID uint) error {
	ok, err := h.Guard.CanModerate(ctx, su, courseID, authorID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("only the author or a moderator may change this")
	}
	return nil
}

func (h *ForumHTTP) ListPosts(c echo.Context) error {
	courseID, _, err := h.member(c)
	if err != nil {
		return err
	}
	posts, err := h.Repo.ListPosts(c.Request().Context(), courseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"data": posts})
}

func (h *ForumHTTP) CreatePost(c echo.Context) error {
	courseID, su, err := h.participant(c)
	if err != nil {
		return err
	}
	var req transport.PostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p := &models.ForumPost{CourseID: courseID, AuthorID: su.ID, Title: req.Title, Body: req.Body}
	if err := h.Repo.CreatePost(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "post": p})
}

func (h *ForumHTTP) PatchPost(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, su, err := h.member(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "postId")
	if err != nil {
		return err
	}
	cur, err := h.Repo.GetPost(ctx, courseID, id)
	if err != nil {
		return err
	}
	if err := h.moderate(ctx, su, courseID, cur.AuthorID); err != nil {
		return err
	}

	var req transport.PatchPostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Body != nil {
		fields["body"] = *req.Body
	}
	p, err := h.Repo.UpdatePost(ctx, courseID, id, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "post": p})
}

func (h *ForumHTTP) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, su, err := h.member(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "postId")
	if err != nil {
		return err
	}
	cur, err := h.Repo.GetPost(ctx, courseID, id)
	if err != nil {
		return err
	}
	if err := h.moderate(ctx, su, courseID, cur.AuthorID); err != nil {
		return err
	}
	if err := h.Repo.DeletePost(ctx, courseID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *ForumHTTP) CreateAnswer(c echo.Context) error {
	ctx := c.Request().Context()
	courseID, su, err := h.participant(c)
	if err != nil {
		return err
	}
	postID, err := paramID(c, "postId")
	if err != nil {
		return err
	}
	if _, err := h.Repo.GetPost(ctx, courseID, postID); err != nil {
		return err
	}
	var req transport.AnswerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	a := &models.ForumAnswer{PostID: postID, AuthorID: su.ID, Body: req.Body}
	if err := h.Repo.CreateAnswer(ctx, a); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "answer": a})
}

// answer loads an answer, checking the post belongs to the course first.
func (h *ForumHTTP) answer(c echo.Context) (uint, *session.SessionUser, *models.ForumAnswer, error) {
	ctx := c.Request().Context()
	courseID, su, err := h.member(c)
	if err != nil {
		return 0, nil, nil, err
	}
	postID, err := paramID(c, "postId")
	if err != nil {
		return 0, nil, nil, err
	}
	id, err := paramID(c, "answerId")
	if err != nil {
		return 0, nil, nil, err
	}
	if _, err := h.Repo.GetPost(ctx, courseID, postID); err != nil {
		return 0, nil, nil, err
	}
	a, err := h.Repo.GetAnswer(ctx, postID, id)
	if err != nil {
		return 0, nil, nil, err
	}
	if err := h.moderate(ctx, su, courseID, a.AuthorID); err != nil {
		return 0, nil, nil, err
	}
	return courseID, su, a, nil
}

func (h *ForumHTTP) PatchAnswer(c echo.Context) error {
	_, _, a, err := h.answer(c)
	if err != nil {
		return err
	}
	var req transport.AnswerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.Repo.UpdateAnswer(c.Request().Context(), a.PostID, a.ID, map[string]any{"body": req.Body})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "answer": updated})
}

func (h *ForumHTTP) DeleteAnswer(c echo.Context) error {
	_, _, a, err := h.answer(c)
	if err != nil {
		return err
	}
	if err := h.Repo.DeleteAnswer(c.Request().Context(), a.PostID, a.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
