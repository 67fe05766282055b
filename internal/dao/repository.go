// Package dao provides a generic gorm-backed repository with classified
// storage errors.
//
// # Usage
//
//	repo := dao.NewRepository[entities.Address](db)
//	addr, err := repo.Lookup(ctx, "cep = ?", "01001000")
package dao

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/datakit/internal/faults"
)

// Repository handles database operations for one entity type.
type Repository[E any] struct {
	db *gorm.DB
}

// NewRepository creates a repository bound to db.
func NewRepository[E any](db *gorm.DB) *Repository[E] {
	return &Repository[E]{db: db}
}

// Lookup returns the first entity matching the condition, or nil when no
// row matches. Absence is not an error here; use First when it should be.
func (r *Repository[E]) Lookup(ctx context.Context, query any, args ...any) (*E, error) {
	var entity E
	err := r.db.WithContext(ctx).Where(query, args...).First(&entity).Error
	if err == nil {
		return &entity, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, faults.ClassifyStorage(err)
}

// First returns the first entity matching the condition, failing with an
// entity-not-found fault when no row matches.
func (r *Repository[E]) First(ctx context.Context, query any, args ...any) (*E, error) {
	var entity E
	err := r.db.WithContext(ctx).Where(query, args...).First(&entity).Error
	if err != nil {
		return nil, faults.ClassifyStorage(err)
	}
	return &entity, nil
}

// Create inserts a new entity.
func (r *Repository[E]) Create(ctx context.Context, entity *E) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return faults.ClassifyStorage(err)
	}
	return nil
}

// Upsert inserts the entity or updates all columns of the existing row on
// conflict.
func (r *Repository[E]) Upsert(ctx context.Context, entity *E) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(entity).Error
	if err != nil {
		return faults.ClassifyStorage(err)
	}
	return nil
}

// Delete removes every entity matching the condition. Deleting nothing is
// not an error.
func (r *Repository[E]) Delete(ctx context.Context, query any, args ...any) error {
	var entity E
	if err := r.db.WithContext(ctx).Where(query, args...).Delete(&entity).Error; err != nil {
		return faults.ClassifyStorage(err)
	}
	return nil
}

// Count returns the number of stored entities.
func (r *Repository[E]) Count(ctx context.Context) (int64, error) {
	var entity E
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity).Count(&count).Error; err != nil {
		return 0, faults.ClassifyStorage(err)
	}
	return count, nil
}
