package assembly

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/stockledger/internal/repo"
	"github.com/angelmondragon/stockledger/pkg/db/models"
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

// Upsert inserts the edge or overwrites quantity and extra of the existing one.
func (r *Repository) Upsert(ctx context.Context, part *models.AssemblyPart) error {
	return r.DB(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parent_id"}, {Name: "part_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "extra", "updated_at"}),
		}).
		Create(part).Error
}

// Find returns the edge between parent and part, or nil.
func (r *Repository) Find(ctx context.Context, parentID, partID int64) (*models.AssemblyPart, error) {
	var part models.AssemblyPart
	err := r.DB(ctx).
		Where("parent_id = ? AND part_id = ?", parentID, partID).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &part, nil
}

func (r *Repository) Update(ctx context.Context, part *models.AssemblyPart) error {
	part.UpdatedAt = time.Now().UTC()
	return r.DB(ctx).
		Model(&models.AssemblyPart{}).
		Where("id = ?", part.ID).
		Updates(map[string]any{
			"quantity":   part.Quantity,
			"extra":      part.Extra,
			"updated_at": part.UpdatedAt,
		}).Error
}

// Delete detaches part from parent and reports how many edges were removed.
func (r *Repository) Delete(ctx context.Context, parentID, partID int64) (int64, error) {
	res := r.DB(ctx).
		Where("parent_id = ? AND part_id = ?", parentID, partID).
		Delete(&models.AssemblyPart{})
	return res.RowsAffected, res.Error
}

// ListParts returns the direct parts of parent with the part items loaded.
func (r *Repository) ListParts(ctx context.Context, parentID int64) ([]models.AssemblyPart, error) {
	var rows []models.AssemblyPart
	err := r.DB(ctx).
		Preload("Part").
		Where("parent_id = ?", parentID).
		Order("created_at ASC, part_id ASC").
		Find(&rows).Error
	return rows, err
}
