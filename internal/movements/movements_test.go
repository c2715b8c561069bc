package movements

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/dbtest"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/pagination"
	"github.com/angelmondragon/stockledger/pkg/types"
)

func setup(t *testing.T) (*db.Client, *Repository, *models.Stock) {
	t.Helper()
	client := dbtest.Open(t)
	warehouse := uuid.New()
	loc := &models.Location{Name: "Bin", WarehouseID: &warehouse}
	require.NoError(t, client.DB().Create(loc).Error)
	stock := &models.Stock{
		Owner:      types.OwnerRef{Kind: enums.OwnerKindItem, ID: "1"},
		LocationID: loc.ID,
		Location:   loc,
	}
	require.NoError(t, client.DB().Omit("Location").Create(stock).Error)
	return client, NewRepository(client.DB()), stock
}

func record(t *testing.T, client *db.Client, rec *Recorder, e Entry) *models.Movement {
	t.Helper()
	var out *models.Movement
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		m, err := rec.Record(context.Background(), tx, e)
		out = m
		return err
	}))
	return out
}

func TestRecorderCopiesEntry(t *testing.T) {
	client, repo, stock := setup(t)
	rec := NewRecorder(repo)
	actor := uuid.New()
	receiver := types.OwnerRef{Kind: enums.OwnerKindItem, ID: "9"}

	m := record(t, client, rec, Entry{
		Stock:    stock,
		Before:   decimal.NewFromInt(0),
		After:    decimal.NewFromInt(10),
		Reason:   "delivery",
		Cost:     decimal.RequireFromString("2.50"),
		Actor:    &actor,
		Receiver: &receiver,
	})

	stored, err := repo.FindByID(context.Background(), m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, stock.ID, stored.StockID)
	assert.True(t, stored.Delta().Equal(decimal.NewFromInt(10)))
	assert.True(t, stored.Cost.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, "delivery", stored.Reason)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, actor, *stored.UserID)
	assert.Equal(t, &receiver, stored.Receiver())
	assert.Equal(t, stock.Location.WarehouseID, stored.WarehouseID)
	assert.False(t, stored.Returned)
}

func TestRecorderRequiresTransaction(t *testing.T) {
	_, repo, stock := setup(t)
	_, err := NewRecorder(repo).Record(context.Background(), nil, Entry{Stock: stock})
	assert.Error(t, err)
}

func TestLatestListSinceAndPaging(t *testing.T) {
	client, repo, stock := setup(t)
	rec := NewRecorder(repo)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	rec.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	var recorded []*models.Movement
	for i := 0; i < 4; i++ {
		recorded = append(recorded, record(t, client, rec, Entry{
			Stock:  stock,
			Before: decimal.NewFromInt(int64(i)),
			After:  decimal.NewFromInt(int64(i + 1)),
		}))
	}
	ctx := context.Background()

	latest, err := repo.Latest(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, recorded[3].ID, latest.ID)

	since, err := repo.ListSince(ctx, stock.ID, recorded[1].CreatedAt)
	require.NoError(t, err)
	require.Len(t, since, 3)
	assert.Equal(t, recorded[3].ID, since[0].ID)
	assert.Equal(t, recorded[1].ID, since[2].ID)

	svc, err := NewService(repo)
	require.NoError(t, err)
	first, err := svc.List(ctx, stock.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.NextCursor)
	second, err := svc.List(ctx, stock.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, recorded[0].ID, second.Items[0].ID)
	assert.Empty(t, second.NextCursor)

	none, err := repo.Latest(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindForStockScopesToStock(t *testing.T) {
	client, repo, stock := setup(t)
	m := record(t, client, NewRecorder(repo), Entry{Stock: stock, After: decimal.NewFromInt(1)})

	got, err := repo.FindForStock(context.Background(), stock.ID, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	other, err := repo.FindForStock(context.Background(), uuid.New(), m.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestMarkReturned(t *testing.T) {
	client, repo, stock := setup(t)
	m := record(t, client, NewRecorder(repo), Entry{Stock: stock, After: decimal.NewFromInt(3)})
	svc, err := NewService(repo)
	require.NoError(t, err)

	updated, err := svc.MarkReturned(context.Background(), m.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Returned)

	_, err = svc.MarkReturned(context.Background(), uuid.New(), true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidMovement))

	_, err = svc.List(context.Background(), stock.ID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
