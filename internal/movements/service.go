package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
)

// Service exposes read access to the movement log plus the returned flag.
type Service interface {
	List(ctx context.Context, stockID uuid.UUID, params pagination.Params) (*pagination.Page[MovementDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Movement, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returned bool) (*models.Movement, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, stockID uuid.UUID, params pagination.Params) (*pagination.Page[MovementDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, stockID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	dtos := make([]MovementDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewMovementDTO(row))
	}
	page := pagination.NewPage(dtos, params.Limit, func(m MovementDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return &page, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Movement, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movement")
	}
	if m == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidMovement, fmt.Sprintf("movement %s not found", id))
	}
	return m, nil
}

func (s *service) MarkReturned(ctx context.Context, id uuid.UUID, returned bool) (*models.Movement, error) {
	affected, err := s.repo.SetReturned(ctx, id, returned)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark movement returned")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidMovement, fmt.Sprintf("movement %s not found", id))
	}
	return s.Get(ctx, id)
}
