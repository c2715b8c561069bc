package codes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/internal/owners"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/dbtest"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type fixture struct {
	client *db.Client
	svc    Service
	items  *items.Repository
}

func newFixture(t *testing.T, tweak func(*config.InventoryConfig)) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	itemRepo := items.NewRepository(conn)
	registry := owners.NewRegistry()
	registry.Register(enums.OwnerKindItem, items.NewResolver(itemRepo))

	cfg := config.DefaultInventoryConfig()
	if tweak != nil {
		tweak(&cfg)
	}
	svc, err := NewService(client, NewRepository(conn), registry, outbox.NewService(outbox.NewRepository(conn), nil), cfg)
	require.NoError(t, err)
	return &fixture{client: client, svc: svc, items: itemRepo}
}

func (f *fixture) item(t *testing.T, name, category string) types.OwnerRef {
	t.Helper()
	ctx := context.Background()
	item := &models.Item{Name: name}
	if category != "" {
		cat := &models.Category{Name: category}
		require.NoError(t, f.items.CreateCategory(ctx, cat))
		item.CategoryID = &cat.ID
	}
	require.NoError(t, f.items.CreateItem(ctx, item))
	return items.Ref(item.ID)
}

func TestGenerateWithSeparator(t *testing.T) {
	f := newFixture(t, func(cfg *config.InventoryConfig) {
		cfg.CodeSeparator = "-"
	})
	owner := f.item(t, "Ketchup", "Sauces")

	code, ok, err := f.svc.Generate(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SAU-000001", code)

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventCodeGenerated).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestGenerateReturnsExistingCode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.item(t, "Ketchup", "Sauces")

	first, ok, err := f.svc.Generate(ctx, owner)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SAU000001", first)

	again, ok, err := f.svc.Generate(ctx, owner)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, again)
}

func TestGenerateWithoutCategory(t *testing.T) {
	f := newFixture(t, nil)
	owner := f.item(t, "Loose bolt", "")

	code, ok, err := f.svc.Generate(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, code)

	has, err := f.svc.HasCode(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGenerateDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.InventoryConfig) {
		cfg.CodesEnabled = false
	})
	owner := f.item(t, "Ketchup", "Sauces")

	_, ok, err := f.svc.Generate(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateUnknownOwner(t *testing.T) {
	f := newFixture(t, nil)

	_, _, err := f.svc.Generate(context.Background(), items.Ref(404))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRegenerate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.item(t, "Ketchup", "Sauces")

	_, _, err := f.svc.Generate(ctx, owner)
	require.NoError(t, err)

	bolts := &models.Category{Name: "bolts"}
	require.NoError(t, f.items.CreateCategory(ctx, bolts))
	require.NoError(t, f.client.DB().Model(&models.Item{}).Where("id = ?", owner.ID).Update("category_id", bolts.ID).Error)

	code, ok, err := f.svc.Regenerate(ctx, owner)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BOL000001", code)

	found, err := f.svc.FindByCode(ctx, "BOL000001")
	require.NoError(t, err)
	assert.Equal(t, owner, found.Owner)
	_, err = f.svc.FindByCode(ctx, "SAU000001")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRegenerateKeepsPreviousCodeOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.item(t, "Ketchup", "Sauces")

	_, _, err := f.svc.Generate(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, f.client.DB().Model(&models.Item{}).Where("id = ?", owner.ID).Update("category_id", nil).Error)

	code, ok, err := f.svc.Regenerate(ctx, owner)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "SAU000001", code)

	stored, err := f.svc.GetCode(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "SAU000001", stored.Code)
}

func TestCreateExplicitCode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := f.item(t, "Ketchup", "Sauces")
	other := f.item(t, "Mustard", "Sauces")

	created, err := f.svc.Create(ctx, owner, " KET-1 ", false)
	require.NoError(t, err)
	assert.Equal(t, "KET-1", created.Code)

	_, err = f.svc.Create(ctx, owner, "KET-2", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCodeAlreadyExists))

	updated, err := f.svc.Create(ctx, owner, "KET-2", true)
	require.NoError(t, err)
	assert.Equal(t, "KET-2", updated.Code)
	assert.Equal(t, created.ID, updated.ID)

	_, err = f.svc.Create(ctx, other, "KET-2", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCodeAlreadyExists))

	_, err = f.svc.Create(ctx, other, "  ", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetCodeMissing(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetCode(context.Background(), types.OwnerRef{Kind: enums.OwnerKindItem, ID: uuid.NewString()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFormat(t *testing.T) {
	cfg := config.DefaultInventoryConfig()

	code, ok := Format(cfg, "  sauces ", 42)
	assert.True(t, ok)
	assert.Equal(t, "SAU000042", code)

	code, ok = Format(cfg, "Ñu", 7)
	assert.True(t, ok)
	assert.Equal(t, "ÑU000007", code)

	cfg.CodePrefixLength = 0
	_, ok = Format(cfg, "Sauces", 1)
	assert.False(t, ok)

	cfg = config.DefaultInventoryConfig()
	cfg.CodeSuffixLength = 2
	code, _ = Format(cfg, "Sauces", 12345)
	assert.Equal(t, "SAU12345", code)
}
