package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/coursehub/internal/apperr"
	"github.com/Skotchmaster/coursehub/internal/models"
)

// NewAccount describes a user together with the role tags and profiles that
// must be created alongside it.
type NewAccount struct {
	User           *models.User
	Roles          []models.RoleTag
	Student        bool
	Instructor     bool
	InstructorTier models.InstructorTier
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db(ctx).First(&u, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func (r *GormRepo) GetUserWithRoles(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db(ctx).Preload("Roles").First(&u, id).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func (r *GormRepo) HasStudentProfile(ctx context.Context, userID uint) (bool, error) {
	var n int64
	if err := r.db(ctx).Model(&models.StudentProfile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, apperr.FromDB(err, "student profile")
	}
	return n > 0, nil
}

// GetInstructorProfile returns nil without error when the user has no
// instructor profile.
func (r *GormRepo) GetInstructorProfile(ctx context.Context, userID uint) (*models.InstructorProfile, error) {
	var p models.InstructorProfile
	err := r.db(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromDB(err, "instructor profile")
	}
	return &p, nil
}

func (r *GormRepo) ListRoles(ctx context.Context, userID uint) ([]models.RoleTag, error) {
	var tags []models.RoleTag
	err := r.db(ctx).Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("role").
		Pluck("role", &tags).Error
	if err != nil {
		return nil, apperr.FromDB(err, "user roles")
	}
	return tags, nil
}

// CreateAccount inserts the user with its role tags and profiles. The student
// and instructor tags always travel with the matching profile: a profile flag
// adds the tag and a tag adds the profile.
func (r *GormRepo) CreateAccount(ctx context.Context, acc NewAccount) error {
	acc.User.Email = models.NormalizeEmail(acc.User.Email)
	roles := acc.Roles
	if acc.Student {
		roles = append(roles, models.TagStudent)
	}
	if acc.Instructor {
		roles = append(roles, models.TagInstructor)
	}
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		active := acc.User.IsActive
		if err := tx.Create(acc.User).Error; err != nil {
			return apperr.FromDB(err, "user")
		}
		// is_active defaults to true, so a false zero value is skipped on insert.
		if !active {
			if err := tx.Model(acc.User).Update("is_active", false).Error; err != nil {
				return apperr.FromDB(err, "user")
			}
		}
		if err := setRoles(tx, acc.User.ID, roles); err != nil {
			return err
		}
		return ensureProfiles(tx, acc.User.ID, roles, acc.InstructorTier)
	})
}

func setRoles(tx *gorm.DB, userID uint, tags []models.RoleTag) error {
	for _, t := range tags {
		if !t.Valid() {
			return apperr.Validation("unknown role tag " + string(t))
		}
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
		return apperr.FromDB(err, "user roles")
	}
	seen := make(map[models.RoleTag]struct{}, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if err := tx.Create(&models.UserRole{UserID: userID, Role: t}).Error; err != nil {
			return apperr.FromDB(err, "user role")
		}
	}
	return nil
}

// ensureProfiles creates the student or instructor profile for each of those
// tags when the user does not have one yet. Existing profiles are left as is.
func ensureProfiles(tx *gorm.DB, userID uint, tags []models.RoleTag, tier models.InstructorTier) error {
	if tier == "" {
		tier = models.TierInstructor
	}
	for _, t := range tags {
		var err error
		switch t {
		case models.TagStudent:
			err = tx.Where(models.StudentProfile{UserID: userID}).
				FirstOrCreate(&models.StudentProfile{}).Error
		case models.TagInstructor:
			err = tx.Where(models.InstructorProfile{UserID: userID}).
				Attrs(models.InstructorProfile{Tier: tier}).
				FirstOrCreate(&models.InstructorProfile{}).Error
		default:
			continue
		}
		if err != nil {
			return apperr.FromDB(err, string(t)+" profile")
		}
	}
	return nil
}

func (r *GormRepo) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	return updateScoped(r.db(ctx), &models.User{}, map[string]any{"password_hash": passwordHash}, "user", "id = ?", userID)
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	var total int64
	if err := r.db(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "users")
	}
	var users []models.User
	err := r.db(ctx).Preload("Roles").Order("id").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, apperr.FromDB(err, "users")
	}
	return users, total, nil
}

// UserUpdate is a partial change to an account. Roles replaces the tag set
// when non-nil; InstructorTier is applied when non-empty.
type UserUpdate struct {
	Fields         map[string]any
	Roles          []models.RoleTag
	InstructorTier models.InstructorTier
}

// UpdateUser applies upd in one transaction. Granting the student or
// instructor tag creates the missing profile; revoking it keeps the profile
// row, and sessions stop honouring it because they require the tag.
func (r *GormRepo) UpdateUser(ctx context.Context, userID uint, upd UserUpdate) (*models.User, error) {
	var out models.User
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateScoped(tx, &models.User{}, upd.Fields, "user", "id = ?", userID); err != nil {
			return err
		}
		if upd.Roles != nil {
			if err := setRoles(tx, userID, upd.Roles); err != nil {
				return err
			}
			if err := ensureProfiles(tx, userID, upd.Roles, upd.InstructorTier); err != nil {
				return err
			}
		}
		if upd.InstructorTier != "" {
			res := tx.Model(&models.InstructorProfile{}).Where("user_id = ?", userID).
				Update("tier", upd.InstructorTier)
			if res.Error != nil {
				return apperr.FromDB(res.Error, "instructor profile")
			}
			if res.RowsAffected == 0 {
				return apperr.Validation("instructorTier requires an instructor profile")
			}
		}
		return apperr.FromDB(tx.Preload("Roles").First(&out, userID).Error, "user")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *GormRepo) DeleteUser(ctx context.Context, userID uint) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		authored := tx.Model(&models.ForumPost{}).Select("id").Where("author_id = ?", userID)
		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&models.ForumAnswer{}, "author_id = ? OR post_id IN (?)", []any{userID, authored}},
			{&models.ForumPost{}, "author_id = ?", []any{userID}},
			{&models.CourseSignup{}, "user_id = ?", []any{userID}},
			{&models.CourseInstructor{}, "user_id = ?", []any{userID}},
			{&models.StudentProfile{}, "user_id = ?", []any{userID}},
			{&models.InstructorProfile{}, "user_id = ?", []any{userID}},
			{&models.UserRole{}, "user_id = ?", []any{userID}},
		}
		for _, s := range steps {
			if err := tx.Where(s.where, s.args...).Delete(s.model).Error; err != nil {
				return apperr.FromDB(err, "user")
			}
		}
		return deleteScoped(tx, &models.User{}, "user", "id = ?", userID)
	})
}
