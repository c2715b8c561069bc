package codes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/repo"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(tx)}
}

func (r *Repository) Create(ctx context.Context, code *models.ItemCode) error {
	return r.DB(ctx).Create(code).Error
}

// FindByOwner returns the code of owner, or nil.
func (r *Repository) FindByOwner(ctx context.Context, owner types.OwnerRef) (*models.ItemCode, error) {
	var rows []models.ItemCode
	err := r.DB(ctx).
		Where("inventoriable_type = ? AND inventoriable_id = ?", owner.Kind, owner.ID).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.ItemCode, error) {
	var row models.ItemCode
	if err := r.DB(ctx).First(&row, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *Repository) UpdateCode(ctx context.Context, id uuid.UUID, code string) error {
	return r.DB(ctx).
		Model(&models.ItemCode{}).
		Where("id = ?", id).
		Updates(map[string]any{"code": code, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.ItemCode{}, "id = ?", id).Error
}
