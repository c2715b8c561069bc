package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
)

// Service manages the standalone catalogue that owns stock.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	CreateMetric(ctx context.Context, name, symbol string) (*models.Metric, error)
}

type CreateItemInput struct {
	Name        string
	Description *string
	CategoryID  *uuid.UUID
	MetricID    *uuid.UUID
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CategoryID != nil {
		category, err := s.repo.FindCategory(ctx, *input.CategoryID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		if category == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
	}
	if input.MetricID != nil {
		metric, err := s.repo.FindMetric(ctx, *input.MetricID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load metric")
		}
		if metric == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "metric not found")
		}
	}

	item := &models.Item{
		Name:        name,
		Description: trimPtr(input.Description),
		CategoryID:  input.CategoryID,
		MetricID:    input.MetricID,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return s.GetItem(ctx, item.ID)
}

func (s *service) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("item %d not found", id))
	}
	return item, nil
}

func (s *service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) CreateMetric(ctx context.Context, name, symbol string) (*models.Metric, error) {
	name = strings.TrimSpace(name)
	symbol = strings.TrimSpace(symbol)
	if name == "" || symbol == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and symbol are required")
	}
	metric := &models.Metric{Name: name, Symbol: symbol}
	if err := s.repo.CreateMetric(ctx, metric); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create metric")
	}
	return metric, nil
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
