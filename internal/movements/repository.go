package movements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/repo"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

const newestFirst = "created_at DESC, id DESC"

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

func (r *Repository) Create(ctx context.Context, m *models.Movement) error {
	return r.DB(ctx).Create(m).Error
}

// FindByID returns nil, nil when the movement does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Movement, error) {
	var m models.Movement
	if err := r.DB(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// FindForStock loads a movement only if it belongs to stockID.
func (r *Repository) FindForStock(ctx context.Context, stockID, id uuid.UUID) (*models.Movement, error) {
	var m models.Movement
	err := r.DB(ctx).
		Where("id = ? AND stock_id = ?", id, stockID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Latest returns the newest movement of the stock, or nil.
func (r *Repository) Latest(ctx context.Context, stockID uuid.UUID) (*models.Movement, error) {
	var rows []models.Movement
	err := r.DB(ctx).
		Where("stock_id = ?", stockID).
		Order(newestFirst).
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// ListSince returns the movements created at or after since, newest first.
func (r *Repository) ListSince(ctx context.Context, stockID uuid.UUID, since time.Time) ([]models.Movement, error) {
	var rows []models.Movement
	err := r.DB(ctx).
		Where("stock_id = ? AND created_at >= ?", stockID, since).
		Order(newestFirst).
		Find(&rows).Error
	return rows, err
}

// List pages through the movements of a stock, newest first.
func (r *Repository) List(ctx context.Context, stockID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Movement, error) {
	q := r.DB(ctx).Where("stock_id = ?", stockID)
	if cursor != nil {
		q = q.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Movement
	err := q.Order(newestFirst).Limit(limit).Find(&rows).Error
	return rows, err
}

// SetReturned flips the returned flag, the only column that changes after insert.
func (r *Repository) SetReturned(ctx context.Context, id uuid.UUID, returned bool) (int64, error) {
	res := r.DB(ctx).Model(&models.Movement{}).
		Where("id = ?", id).
		Update("returned", returned)
	return res.RowsAffected, res.Error
}
