package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
)

// Child rows are always looked up by (course_id, id) so an id from another
// course resolves to NotFound.

func (r *GormRepo) ListMaterials(ctx context.Context, courseID uint) ([]models.CourseMaterial, error) {
	var out []models.CourseMaterial
	if err := r.db(ctx).Where("course_id = ?", courseID).Order("id").Find(&out).Error; err != nil {
		return nil, apperr.FromDB(err, "materials")
	}
	return out, nil
}

func (r *GormRepo) GetMaterial(ctx context.Context, courseID, id uint) (*models.CourseMaterial, error) {
	var m models.CourseMaterial
	if err := r.db(ctx).Where("course_id = ? AND id = ?", courseID, id).First(&m).Error; err != nil {
		return nil, apperr.FromDB(err, "material")
	}
	return &m, nil
}

func (r *GormRepo) CreateMaterial(ctx context.Context, m *models.CourseMaterial) error {
	return apperr.FromDB(r.db(ctx).Create(m).Error, "material")
}

func (r *GormRepo) UpdateMaterial(ctx context.Context, courseID, id uint, fields map[string]any) (*models.CourseMaterial, error) {
	if err := updateScoped(r.db(ctx), &models.CourseMaterial{}, fields, "material", "course_id = ? AND id = ?", courseID, id); err != nil {
		return nil, err
	}
	return r.GetMaterial(ctx, courseID, id)
}

func (r *GormRepo) DeleteMaterial(ctx context.Context, courseID, id uint) error {
	return deleteScoped(r.db(ctx), &models.CourseMaterial{}, "material", "course_id = ? AND id = ?", courseID, id)
}

func (r *GormRepo) ListSessions(ctx context.Context, courseID uint) ([]models.CourseSession, error) {
	var out []models.CourseSession
	if err := r.db(ctx).Where("course_id = ?", courseID).Order("starts_at, id").Find(&out).Error; err != nil {
		return nil, apperr.FromDB(err, "sessions")
	}
	return out, nil
}

func (r *GormRepo) GetSession(ctx context.Context, courseID, id uint) (*models.CourseSession, error) {
	var s models.CourseSession
	if err := r.db(ctx).Where("course_id = ? AND id = ?", courseID, id).First(&s).Error; err != nil {
		return nil, apperr.FromDB(err, "session")
	}
	return &s, nil
}

func (r *GormRepo) CreateSession(ctx context.Context, s *models.CourseSession) error {
	return apperr.FromDB(r.db(ctx).Create(s).Error, "session")
}

func (r *GormRepo) UpdateSession(ctx context.Context, courseID, id uint, fields map[string]any) (*models.CourseSession, error) {
	if err := updateScoped(r.db(ctx), &models.CourseSession{}, fields, "session", "course_id = ? AND id = ?", courseID, id); err != nil {
		return nil, err
	}
	return r.GetSession(ctx, courseID, id)
}

func (r *GormRepo) DeleteSession(ctx context.Context, courseID, id uint) error {
	return deleteScoped(r.db(ctx), &models.CourseSession{}, "session", "course_id = ? AND id = ?", courseID, id)
}

func (r *GormRepo) ListPosts(ctx context.Context, courseID uint) ([]models.ForumPost, error) {
	var out []models.ForumPost
	err := r.db(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("course_id = ?", courseID).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.FromDB(err, "posts")
	}
	return out, nil
}

func (r *GormRepo) GetPost(ctx context.Context, courseID, id uint) (*models.ForumPost, error) {
	var p models.ForumPost
	if err := r.db(ctx).Where("course_id = ? AND id = ?", courseID, id).First(&p).Error; err != nil {
		return nil, apperr.FromDB(err, "post")
	}
	return &p, nil
}

func (r *GormRepo) CreatePost(ctx context.Context, p *models.ForumPost) error {
	return apperr.FromDB(r.db(ctx).Create(p).Error, "post")
}

func (r *GormRepo) UpdatePost(ctx context.Context, courseID, id uint, fields map[string]any) (*models.ForumPost, error) {
	if err := updateScoped(r.db(ctx), &models.ForumPost{}, fields, "post", "course_id = ? AND id = ?", courseID, id); err != nil {
		return nil, err
	}
	return r.GetPost(ctx, courseID, id)
}

func (r *GormRepo) DeletePost(ctx context.Context, courseID, id uint) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.ForumPost
		if err := tx.Where("course_id = ? AND id = ?", courseID, id).First(&p).Error; err != nil {
			return apperr.FromDB(err, "post")
		}
		if err := tx.Where("post_id = ?", p.ID).Delete(&models.ForumAnswer{}).Error; err != nil {
			return apperr.FromDB(err, "answers")
		}
		return deleteScoped(tx, &models.ForumPost{}, "post", "id = ?", p.ID)
	})
}

func (r *GormRepo) GetAnswer(ctx context.Context, postID, id uint) (*models.ForumAnswer, error) {
	var a models.ForumAnswer
	if err := r.db(ctx).Where("post_id = ? AND id = ?", postID, id).First(&a).Error; err != nil {
		return nil, apperr.FromDB(err, "answer")
	}
	return &a, nil
}

func (r *GormRepo) CreateAnswer(ctx context.Context, a *models.ForumAnswer) error {
	return apperr.FromDB(r.db(ctx).Create(a).Error, "answer")
}

func (r *GormRepo) UpdateAnswer(ctx context.Context, postID, id uint, fields map[string]any) (*models.ForumAnswer, error) {
	if err := updateScoped(r.db(ctx), &models.ForumAnswer{}, fields, "answer", "post_id = ? AND id = ?", postID, id); err != nil {
		return nil, err
	}
	return r.GetAnswer(ctx, postID, id)
}

func (r *GormRepo) DeleteAnswer(ctx context.Context, postID, id uint) error {
	return deleteScoped(r.db(ctx), &models.ForumAnswer{}, "answer", "post_id = ? AND id = ?", postID, id)
}

func (r *GormRepo) ListChecklist(ctx context.Context, courseID uint) ([]models.ChecklistItem, error) {
	var out []models.ChecklistItem
	if err := r.db(ctx).Where("course_id = ?", courseID).Order("position, id").Find(&out).Error; err != nil {
		return nil, apperr.FromDB(err, "checklist")
	}
	return out, nil
}

func (r *GormRepo) CreateChecklistItem(ctx context.Context, it *models.ChecklistItem) error {
	return apperr.FromDB(r.db(ctx).Create(it).Error, "checklist item")
}

func (r *GormRepo) UpdateChecklistItem(ctx context.Context, courseID, id uint, fields map[string]any) (*models.ChecklistItem, error) {
	if err := updateScoped(r.db(ctx), &models.ChecklistItem{}, fields, "checklist item", "course_id = ? AND id = ?", courseID, id); err != nil {
		return nil, err
	}
	var it models.ChecklistItem
	if err := r.db(ctx).Where("course_id = ? AND id = ?", courseID, id).First(&it).Error; err != nil {
		return nil, apperr.FromDB(err, "checklist item")
	}
	return &it, nil
}

func (r *GormRepo) DeleteChecklistItem(ctx context.Context, courseID, id uint) error {
	return deleteScoped(r.db(ctx), &models.ChecklistItem{}, "checklist item", "course_id = ? AND id = ?", courseID, id)
}
