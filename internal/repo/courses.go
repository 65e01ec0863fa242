package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
)

type SignupRow struct {
	UserID    uint      `json:"userId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"signedUpAt"`
}

func (r *GormRepo) ListPublishedCourses(ctx context.Context, offset, limit int) ([]models.Course, int64, error) {
	q := r.db(ctx).Model(&models.Course{}).Where("is_published = ?", true)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "courses")
	}
	var out []models.Course
	if err := q.Order("id").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "courses")
	}
	return out, total, nil
}

func (r *GormRepo) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var c models.Course
	if err := r.db(ctx).First(&c, id).Error; err != nil {
		return nil, apperr.FromDB(err, "course")
	}
	return &c, nil
}

// CreateCourse inserts the course and makes creatorID its first instructor.
func (r *GormRepo) CreateCourse(ctx context.Context, c *models.Course, creatorID uint) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return apperr.FromDB(err, "course")
		}
		if err := tx.Create(&models.CourseInstructor{CourseID: c.ID, UserID: creatorID}).Error; err != nil {
			return apperr.FromDB(err, "course instructor")
		}
		return nil
	})
}

func (r *GormRepo) UpdateCourse(ctx context.Context, id uint, fields map[string]any) (*models.Course, error) {
	if err := updateScoped(r.db(ctx), &models.Course{}, fields, "course", "id = ?", id); err != nil {
		return nil, err
	}
	return r.GetCourse(ctx, id)
}

// DeleteCourse removes the course with everything hanging off it and returns
// the object keys of its materials so the caller can clean up storage.
func (r *GormRepo) DeleteCourse(ctx context.Context, id uint) ([]string, error) {
	var keys []string
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.CourseMaterial{}).Where("course_id = ?", id).Pluck("object_key", &keys).Error; err != nil {
			return apperr.FromDB(err, "course materials")
		}
		posts := tx.Model(&models.ForumPost{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("post_id IN (?)", posts).Delete(&models.ForumAnswer{}).Error; err != nil {
			return apperr.FromDB(err, "forum answers")
		}
		for _, m := range []any{
			&models.ForumPost{}, &models.CourseMaterial{}, &models.CourseSession{},
			&models.ChecklistItem{}, &models.CourseSignup{}, &models.CourseInstructor{},
		} {
			if err := tx.Where("course_id = ?", id).Delete(m).Error; err != nil {
				return apperr.FromDB(err, "course")
			}
		}
		return deleteScoped(tx, &models.Course{}, "course", "id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *GormRepo) IsCourseInstructor(ctx context.Context, courseID, userID uint) (bool, error) {
	var n int64
	err := r.db(ctx).Model(&models.CourseInstructor{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&n).Error
	if err != nil {
		return false, apperr.FromDB(err, "course instructor")
	}
	return n > 0, nil
}

func (r *GormRepo) IsEnrolled(ctx context.Context, courseID, userID uint) (bool, error) {
	var n int64
	err := r.db(ctx).Model(&models.CourseSignup{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&n).Error
	if err != nil {
		return false, apperr.FromDB(err, "course signup")
	}
	return n > 0, nil
}

// AssignInstructor links an existing instructor to the course and makes sure
// the user carries the instructor role tag.
func (r *GormRepo) AssignInstructor(ctx context.Context, courseID, userID uint) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Course{}, courseID).Error; err != nil {
			return apperr.FromDB(err, "course")
		}
		var n int64
		if err := tx.Model(&models.InstructorProfile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return apperr.FromDB(err, "instructor profile")
		}
		if n == 0 {
			return apperr.Validation("user has no instructor profile")
		}
		if err := tx.Create(&models.CourseInstructor{CourseID: courseID, UserID: userID}).Error; err != nil {
			return apperr.FromDB(err, "course instructor")
		}
		tag := models.UserRole{UserID: userID, Role: models.TagInstructor}
		if err := tx.Where(tag).FirstOrCreate(&tag).Error; err != nil {
			return apperr.FromDB(err, "user role")
		}
		return nil
	})
}

func (r *GormRepo) RemoveInstructor(ctx context.Context, courseID, userID uint) error {
	return deleteScoped(r.db(ctx), &models.CourseInstructor{}, "course instructor",
		"course_id = ? AND user_id = ?", courseID, userID)
}

func (r *GormRepo) ListInstructorCourses(ctx context.Context, userID uint) ([]models.Course, error) {
	var out []models.Course
	err := r.db(ctx).
		Joins("JOIN course_instructors ci ON ci.course_id = courses.id").
		Where("ci.user_id = ?", userID).
		Order("courses.id").
		Find(&out).Error
	if err != nil {
		return nil, apperr.FromDB(err, "courses")
	}
	return out, nil
}

func (r *GormRepo) ListStudentCourses(ctx context.Context, userID uint) ([]models.Course, error) {
	var out []models.Course
	err := r.db(ctx).
		Joins("JOIN course_signups cs ON cs.course_id = courses.id").
		Where("cs.user_id = ?", userID).
		Order("courses.id").
		Find(&out).Error
	if err != nil {
		return nil, apperr.FromDB(err, "courses")
	}
	return out, nil
}

// Signup enrolls the user in a published course. A repeated signup is a
// Conflict.
func (r *GormRepo) Signup(ctx context.Context, courseID, userID uint) (*models.CourseSignup, error) {
	s := &models.CourseSignup{CourseID: courseID, UserID: userID}
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Course
		if err := tx.First(&c, courseID).Error; err != nil {
			return apperr.FromDB(err, "course")
		}
		if !c.IsPublished {
			return apperr.NotFound("course not found")
		}
		return apperr.FromDB(tx.Create(s).Error, "course signup")
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *GormRepo) CancelSignup(ctx context.Context, courseID, userID uint) error {
	return deleteScoped(r.db(ctx), &models.CourseSignup{}, "course signup",
		"course_id = ? AND user_id = ?", courseID, userID)
}

func (r *GormRepo) ListSignups(ctx context.Context, courseID uint) ([]SignupRow, error) {
	var out []SignupRow
	err := r.db(ctx).Model(&models.CourseSignup{}).
		Select("users.id AS user_id, users.email, users.first_name, users.last_name, course_signups.created_at").
		Joins("JOIN users ON users.id = course_signups.user_id").
		Where("course_signups.course_id = ?", courseID).
		Order("course_signups.created_at, users.id").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.FromDB(err, "course signups")
	}
	return out, nil
}
