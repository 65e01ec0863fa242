package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/events"
	"github.com/Skotchmaster/coursehub/internal/logging"
	"github.com/Skotchmaster/coursehub/internal/models"
	"github.com/Skotchmaster/coursehub/internal/repo"
	"github.com/Skotchmaster/coursehub/internal/search"
	"github.com/Skotchmaster/coursehub/internal/storage"
)

// CourseService runs the course mutations that fan out beyond the database:
// the search index, domain events and object storage. Those side effects are
// best effort and only logged on failure.
type CourseService struct {
	Repo           *repo.GormRepo
	Index          search.Indexer
	Events         events.Publisher
	Store          storage.ObjectStore
	UploadMaxBytes int64
}

func (s *CourseService) Create(ctx context.Context, c *models.Course, creatorID uint) error {
	if err := s.Repo.CreateCourse(ctx, c, creatorID); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return apperr.Conflict("course slug already in use")
		}
		return err
	}
	s.reindex(ctx, c)
	s.courseEvent(ctx, events.CourseCreated, c.ID, creatorID, c.Slug)
	return nil
}

func (s *CourseService) Update(ctx context.Context, id uint, fields map[string]any, actorID uint) (*models.Course, error) {
	c, err := s.Repo.UpdateCourse(ctx, id, fields)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("course slug already in use")
		}
		return nil, err
	}
	s.reindex(ctx, c)
	s.courseEvent(ctx, events.CourseUpdated, c.ID, actorID, c.Slug)
	return c, nil
}

func (s *CourseService) Delete(ctx context.Context, id uint, actorID uint) error {
	keys, err := s.Repo.DeleteCourse(ctx, id)
	if err != nil {
		return err
	}
	l := logging.FromContext(ctx)
	if s.Index != nil {
		if err := s.Index.DeleteCourse(ctx, id); err != nil {
			l.Warn("search_delete_failed", "course_id", id, "error", err)
		}
	}
	for _, k := range keys {
		if err := s.Store.Delete(ctx, k); err != nil {
			l.Warn("storage_delete_failed", "key", k, "error", err)
		}
	}
	s.courseEvent(ctx, events.CourseDeleted, id, actorID, "")
	return nil
}

func (s *CourseService) Signup(ctx context.Context, courseID, userID uint) (*models.CourseSignup, error) {
	signup, err := s.Repo.Signup(ctx, courseID, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("already signed up for this course")
		}
		return nil, err
	}
	s.courseEvent(ctx, events.CourseSignup, courseID, userID, "")
	return signup, nil
}

func (s *CourseService) CancelSignup(ctx context.Context, courseID, userID uint) error {
	if err := s.Repo.CancelSignup(ctx, courseID, userID); err != nil {
		return err
	}
	s.courseEvent(ctx, events.CourseDropped, courseID, userID, "")
	return nil
}

type Upload struct {
	CourseID    uint
	UploaderID  uint
	FileName    string
	DisplayName string
	Size        int64
	Body        io.Reader
}

// UploadMaterial validates the file, stores it under a fresh key and records
// the material row. The stored object is removed again if the insert fails.
func (s *CourseService) UploadMaterial(ctx context.Context, up Upload) (*models.CourseMaterial, error) {
	l := logging.FromContext(ctx).With("svc", "materials.upload", "course_id", up.CourseID)

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, apperr.Wrap(err, "read upload")
	}
	head = head[:n]

	mime, err := storage.Validate(up.FileName, up.Size, s.UploadMaxBytes, head)
	if err != nil {
		l.Warn("upload_rejected", "status", http.StatusBadRequest, "reason", err.Error(), "file", up.FileName)
		return nil, apperr.Validation(err.Error())
	}

	key := storage.ObjectKey(up.CourseID, up.FileName)
	url, err := s.Store.Put(ctx, key, io.MultiReader(bytes.NewReader(head), up.Body), up.Size, mime)
	if err != nil {
		if errors.Is(err, storage.ErrObjectExists) {
			return nil, apperr.Conflict("file already exists")
		}
		l.Error("upload_failed", "status", http.StatusInternalServerError, "error", err)
		return nil, apperr.Wrap(err, "store upload")
	}

	display := up.DisplayName
	if display == "" {
		display = up.FileName
	}
	m := &models.CourseMaterial{
		CourseID:    up.CourseID,
		DisplayName: display,
		FileName:    storage.SanitizeName(up.FileName),
		ObjectKey:   key,
		URL:         url,
		MimeType:    mime,
		SizeBytes:   up.Size,
		UploadedBy:  up.UploaderID,
	}
	if err := s.Repo.CreateMaterial(ctx, m); err != nil {
		if derr := s.Store.Delete(ctx, key); derr != nil {
			l.Warn("storage_delete_failed", "key", key, "error", derr)
		}
		return nil, err
	}
	l.Info("upload_ok", "material_id", m.ID, "size", up.Size)
	return m, nil
}

func (s *CourseService) DeleteMaterial(ctx context.Context, courseID, id uint) error {
	m, err := s.Repo.GetMaterial(ctx, courseID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteMaterial(ctx, courseID, id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, m.ObjectKey); err != nil {
		logging.FromContext(ctx).Warn("storage_delete_failed", "key", m.ObjectKey, "error", err)
	}
	return nil
}

func (s *CourseService) reindex(ctx context.Context, c *models.Course) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexCourse(ctx, c); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "course_id", c.ID, "error", err)
	}
}

func (s *CourseService) courseEvent(ctx context.Context, kind string, courseID, actorID uint, slug string) {
	if s.Events == nil {
		return
	}
	ev := events.CourseEvent{Type: kind, CourseID: courseID, ActorID: actorID, Slug: slug, At: time.Now().UTC()}
	if err := s.Events.PublishEvent(ctx, events.TopicCourseEvents, strconv.FormatUint(uint64(courseID), 10), ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicCourseEvents, "error", err)
	}
}
