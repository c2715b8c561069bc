package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockledger/internal/repo"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/types"
)

// ErrStaleVersion reports that the stock row changed since it was read.
var ErrStaleVersion = errors.New("stock version is stale")

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

func (r *Repository) Create(ctx context.Context, s *models.Stock) error {
	return r.DB(ctx).Omit(clause.Associations).Create(s).Error
}

// FindByID loads an active stock with its location. Missing rows return nil, nil.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var s models.Stock
	if err := r.DB(ctx).Preload("Location").First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// FindByOwnerAndLocation returns the active stock of owner at locationID, or nil.
func (r *Repository) FindByOwnerAndLocation(ctx context.Context, owner types.OwnerRef, locationID uuid.UUID) (*models.Stock, error) {
	var rows []models.Stock
	err := r.DB(ctx).
		Preload("Location").
		Where("inventoriable_type = ? AND inventoriable_id = ? AND location_id = ?", owner.Kind, owner.ID, locationID).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *Repository) ListByOwner(ctx context.Context, owner types.OwnerRef) ([]models.Stock, error) {
	var rows []models.Stock
	err := r.DB(ctx).
		Preload("Location").
		Where("inventoriable_type = ? AND inventoriable_id = ?", owner.Kind, owner.ID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// SumByOwner totals the active quantities of owner across locations.
func (r *Repository) SumByOwner(ctx context.Context, owner types.OwnerRef) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	err := r.DB(ctx).
		Model(&models.Stock{}).
		Select("COALESCE(SUM(quantity), 0) AS total").
		Where("inventoriable_type = ? AND inventoriable_id = ?", owner.Kind, owner.ID).
		Scan(&out).Error
	return out.Total, err
}

// ListAfter pages through every active stock ordered by id.
func (r *Repository) ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.Stock, error) {
	q := r.DB(ctx).Model(&models.Stock{})
	if after != uuid.Nil {
		q = q.Where("id > ?", after)
	}
	var rows []models.Stock
	err := q.Order("id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

// UpdateQuantity writes qty only if s still carries the stored version.
// On success s reflects the new row.
func (r *Repository) UpdateQuantity(ctx context.Context, s *models.Stock, qty decimal.Decimal) error {
	now := time.Now().UTC()
	if err := r.versioned(ctx, s, map[string]any{"quantity": qty}, now); err != nil {
		return err
	}
	s.Quantity = qty
	return nil
}

// UpdateLocation moves s to location under the same version check.
func (r *Repository) UpdateLocation(ctx context.Context, s *models.Stock, location *models.Location) error {
	now := time.Now().UTC()
	if err := r.versioned(ctx, s, map[string]any{"location_id": location.ID}, now); err != nil {
		return err
	}
	s.LocationID = location.ID
	s.Location = location
	return nil
}

func (r *Repository) versioned(ctx context.Context, s *models.Stock, values map[string]any, now time.Time) error {
	values["version"] = gorm.Expr("version + 1")
	values["updated_at"] = now
	res := r.DB(ctx).
		Model(&models.Stock{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	s.Version++
	s.UpdatedAt = now
	return nil
}
