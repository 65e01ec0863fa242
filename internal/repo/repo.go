// Package repo is the gorm-backed persistence layer. Every method takes the
// request context and returns errors already mapped through apperr.FromDB.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/coursehub/internal/apperr"
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) db(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx)
}

// updateScoped applies fields to the row matching where and reports NotFound
// when nothing matched.
func updateScoped(tx *gorm.DB, model any, fields map[string]any, what string, where string, args ...any) error {
	if len(fields) == 0 {
		var n int64
		if err := tx.Model(model).Where(where, args...).Count(&n).Error; err != nil {
			return apperr.FromDB(err, what)
		}
		if n == 0 {
			return apperr.NotFound(what + " not found")
		}
		return nil
	}
	res := tx.Model(model).Where(where, args...).Updates(fields)
	if res.Error != nil {
		return apperr.FromDB(res.Error, what)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(what + " not found")
	}
	return nil
}

func deleteScoped(tx *gorm.DB, model any, what string, where string, args ...any) error {
	res := tx.Where(where, args...).Delete(model)
	if res.Error != nil {
		return apperr.FromDB(res.Error, what)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(what + " not found")
	}
	return nil
}
