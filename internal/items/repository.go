package items

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/repo"
	"github.com/angelmondragon/stockledger/pkg/db/models"
)

// Repository persists catalogue items, categories and metrics.
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

func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.DB(ctx).Create(item).Error
}

// FindByID loads the item with its category and metric. Missing rows return nil, nil.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := r.DB(ctx).
		Preload("Category").
		Preload("Metric").
		First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// MarkAssembly flags the item as an assembly.
func (r *Repository) MarkAssembly(ctx context.Context, id int64) error {
	return r.DB(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		Update("is_assembly", true).Error
}

// ListAssemblies returns items flagged as assemblies, oldest first.
func (r *Repository) ListAssemblies(ctx context.Context) ([]models.Item, error) {
	var rows []models.Item
	err := r.DB(ctx).
		Preload("Category").
		Where("is_assembly = ?", true).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *Repository) CreateMetric(ctx context.Context, metric *models.Metric) error {
	return r.DB(ctx).Create(metric).Error
}

func (r *Repository) FindMetric(ctx context.Context, id uuid.UUID) (*models.Metric, error) {
	var metric models.Metric
	if err := r.DB(ctx).First(&metric, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &metric, nil
}
