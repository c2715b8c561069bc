// Package codes assigns human readable reference codes to stock owners.
// A code is the upper-cased category prefix, the configured separator and
// the owner's number left padded with zeros.
package codes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/owners"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/outbox/payloads"
	"github.com/angelmondragon/stockledger/pkg/types"
)

var errNotGenerated = errors.New("code not generated")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ownerResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, ref types.OwnerRef) (owners.Owner, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type Service interface {
	// Generate returns ok=false when codes are disabled or the owner has no
	// category to derive a prefix from. An existing code is returned as is.
	Generate(ctx context.Context, owner types.OwnerRef) (code string, ok bool, err error)
	// Regenerate replaces the code. When no new code can be derived the
	// previous one is kept and ok is false.
	Regenerate(ctx context.Context, owner types.OwnerRef) (code string, ok bool, err error)
	Create(ctx context.Context, owner types.OwnerRef, code string, overwrite bool) (*models.ItemCode, error)
	FindByCode(ctx context.Context, code string) (*models.ItemCode, error)
	HasCode(ctx context.Context, owner types.OwnerRef) (bool, error)
	GetCode(ctx context.Context, owner types.OwnerRef) (*models.ItemCode, error)
}

type service struct {
	tx     txRunner
	repo   *Repository
	owners ownerResolver
	outbox outboxPublisher
	cfg    config.InventoryConfig
}

func NewService(tx txRunner, repo *Repository, resolver ownerResolver, publisher outboxPublisher, cfg config.InventoryConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("code repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("owner resolver required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, owners: resolver, outbox: publisher, cfg: cfg}, nil
}

func (s *service) Generate(ctx context.Context, owner types.OwnerRef) (string, bool, error) {
	if !s.cfg.CodesEnabled {
		return "", false, nil
	}
	var (
		code string
		ok   bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		code, ok, err = s.generate(ctx, tx, owner)
		return err
	})
	if err != nil {
		return "", false, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "generate code")
	}
	return code, ok, nil
}

func (s *service) Regenerate(ctx context.Context, owner types.OwnerRef) (string, bool, error) {
	if !s.cfg.CodesEnabled {
		return "", false, nil
	}
	var (
		previous *models.ItemCode
		code     string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		previous, err = repo.FindByOwner(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
		}
		if previous != nil {
			if err := repo.Delete(ctx, previous.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete code")
			}
		}
		var ok bool
		code, ok, err = s.generate(ctx, tx, owner)
		if err != nil {
			return err
		}
		if !ok {
			return errNotGenerated
		}
		return nil
	})
	if errors.Is(err, errNotGenerated) {
		if previous != nil {
			return previous.Code, false, nil
		}
		return "", false, nil
	}
	if err != nil {
		return "", false, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "regenerate code")
	}
	return code, true, nil
}

func (s *service) generate(ctx context.Context, tx *gorm.DB, owner types.OwnerRef) (string, bool, error) {
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByOwner(ctx, owner)
	if err != nil {
		return "", false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	if existing != nil {
		return existing.Code, true, nil
	}
	resolved, err := s.owners.Resolve(ctx, tx, owner)
	if err != nil {
		return "", false, err
	}
	code, ok := Format(s.cfg, resolved.CategoryName(), resolved.Number())
	if !ok {
		return "", false, nil
	}
	if err := s.store(ctx, tx, &models.ItemCode{Owner: owner, Code: code}); err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (s *service) Create(ctx context.Context, owner types.OwnerRef, code string, overwrite bool) (*models.ItemCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	var out *models.ItemCode
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.owners.Resolve(ctx, tx, owner); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByOwner(ctx, owner)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
		}
		if existing == nil {
			out = &models.ItemCode{Owner: owner, Code: code}
			return s.store(ctx, tx, out)
		}
		if !overwrite {
			return pkgerrors.New(pkgerrors.CodeCodeAlreadyExists, fmt.Sprintf("%s already has code %s", owner, existing.Code))
		}
		if err := repo.UpdateCode(ctx, existing.ID, code); err != nil {
			if db.IsUniqueViolation(err, "") {
				return codeTaken(code)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update code")
		}
		existing.Code = code
		out = existing
		return s.emit(ctx, tx, existing)
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create code")
	}
	return out, nil
}

func (s *service) FindByCode(ctx context.Context, code string) (*models.ItemCode, error) {
	row, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("code %q not found", code))
	}
	return row, nil
}

func (s *service) HasCode(ctx context.Context, owner types.OwnerRef) (bool, error) {
	row, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	return row != nil, nil
}

func (s *service) GetCode(ctx context.Context, owner types.OwnerRef) (*models.ItemCode, error) {
	row, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load code")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s has no code", owner))
	}
	return row, nil
}

func (s *service) store(ctx context.Context, tx *gorm.DB, row *models.ItemCode) error {
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			return codeTaken(row.Code)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store code")
	}
	return s.emit(ctx, tx, row)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, row *models.ItemCode) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventCodeGenerated,
		AggregateType: enums.AggregateItemCode,
		AggregateID:   row.Owner.String(),
		Data: payloads.CodeGeneratedEvent{
			Owner:       row.Owner,
			Code:        row.Code,
			GeneratedAt: time.Now().UTC(),
		},
		Version: 1,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue code event")
	}
	return nil
}

func codeTaken(code string) error {
	return pkgerrors.New(pkgerrors.CodeCodeAlreadyExists, fmt.Sprintf("code %s is already assigned", code))
}

// Format derives a code from a category name and an owner number. ok is
// false when there is no category or the prefix length is zero.
func Format(cfg config.InventoryConfig, category string, number int64) (string, bool) {
	category = strings.TrimSpace(category)
	if category == "" || cfg.CodePrefixLength <= 0 {
		return "", false
	}
	runes := []rune(category)
	if len(runes) > cfg.CodePrefixLength {
		runes = runes[:cfg.CodePrefixLength]
	}
	prefix := strings.ToUpper(string(runes))
	suffix := fmt.Sprintf("%0*d", cfg.CodeSuffixLength, number)
	return prefix + cfg.CodeSeparator + suffix, true
}
