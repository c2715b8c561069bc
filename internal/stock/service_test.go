package stock

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/internal/identity"
	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/internal/locations"
	"github.com/angelmondragon/stockledger/internal/movements"
	"github.com/angelmondragon/stockledger/internal/owners"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/db/dbtest"
	"github.com/angelmondragon/stockledger/pkg/db/models"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/outbox"
	"github.com/angelmondragon/stockledger/pkg/types"
)

type harness struct {
	client   *db.Client
	svc      Service
	stocks   *Repository
	log      *movements.Repository
	owner    types.OwnerRef
	location *models.Location
	logs     *bytes.Buffer
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newHarness(t *testing.T, provider identity.Provider, tweak func(*config.InventoryConfig)) *harness {
	t.Helper()
	ctx := context.Background()
	client := dbtest.Open(t)
	conn := client.DB()

	itemRepo := items.NewRepository(conn)
	item := &models.Item{Name: "Bolt"}
	require.NoError(t, itemRepo.CreateItem(ctx, item))
	registry := owners.NewRegistry()
	registry.Register(enums.OwnerKindItem, items.NewResolver(itemRepo))

	warehouse := &models.Warehouse{Name: "Main"}
	require.NoError(t, conn.Create(warehouse).Error)
	location := &models.Location{Name: "A1", WarehouseID: &warehouse.ID}
	require.NoError(t, conn.Create(location).Error)

	cfg := config.DefaultInventoryConfig()
	if tweak != nil {
		tweak(&cfg)
	}
	if provider == nil {
		provider = identity.Static(uuid.New())
	}

	stocks := NewRepository(conn)
	log := movements.NewRepository(conn)
	logs := &bytes.Buffer{}
	svc, err := NewService(ServiceParams{
		DB:        client,
		Stocks:    stocks,
		Movements: log,
		Locations: locations.NewRepository(conn),
		Owners:    registry,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Identity:  provider,
		Config:    cfg,
		Logger:    logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: logs}),
	})
	require.NoError(t, err)
	return &harness{
		client:   client,
		svc:      svc,
		stocks:   stocks,
		log:      log,
		owner:    items.Ref(item.ID),
		location: location,
		logs:     logs,
	}
}

func (h *harness) create(t *testing.T, qty string) *models.Stock {
	t.Helper()
	stock, err := h.svc.Create(context.Background(), CreateInput{
		Owner:      h.owner,
		LocationID: h.location.ID,
		Quantity:   dec(qty),
	})
	require.NoError(t, err)
	return stock
}

func (h *harness) movements(t *testing.T, stockID uuid.UUID) []models.Movement {
	t.Helper()
	var rows []models.Movement
	require.NoError(t, h.client.DB().
		Where("stock_id = ?", stockID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error)
	return rows
}

func (h *harness) events(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).
		Count(&count).Error)
	return count
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *models.Stock {
	t.Helper()
	stock, err := h.stocks.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stock)
	return stock
}

func TestCreateLogsFirstRecord(t *testing.T) {
	h := newHarness(t, nil, nil)

	stock := h.create(t, "10")
	assert.True(t, stock.Quantity.Equal(dec("10")))
	assert.Equal(t, int64(1), stock.Version)
	require.NotNil(t, stock.UserID)

	rows := h.movements(t, stock.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "first record", rows[0].Reason)
	assert.True(t, rows[0].Before.IsZero())
	assert.True(t, rows[0].After.Equal(dec("10")))
	assert.Equal(t, h.location.WarehouseID, rows[0].WarehouseID)
	assert.Equal(t, int64(1), h.events(t, enums.EventStockAdded))
}

func TestCreateRejectsSecondStockAtLocation(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.create(t, "1")

	_, err := h.svc.Create(context.Background(), CreateInput{Owner: h.owner, LocationID: h.location.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockAlreadyExists))
}

func TestCreateRequiresKnownOwnerAndLocation(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	_, err := h.svc.Create(ctx, CreateInput{Owner: items.Ref(999), LocationID: h.location.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Create(ctx, CreateInput{Owner: h.owner, LocationID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.svc.Create(ctx, CreateInput{Owner: h.owner, LocationID: h.location.ID, Quantity: dec("-1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))
}

func TestPutThenTake(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "0")

	stock, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("10"), Reason: "delivery", Cost: dec("25")})
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("10")))

	stock, err = h.svc.Take(ctx, stock.ID, TakeInput{Quantity: dec("4")})
	require.NoError(t, err)
	assert.True(t, stock.Quantity.Equal(dec("6")))
	assert.Equal(t, int64(3), stock.Version)

	rows := h.movements(t, stock.ID)
	require.Len(t, rows, 3)
	assert.True(t, rows[1].Delta().Equal(dec("10")))
	assert.Equal(t, "delivery", rows[1].Reason)
	assert.True(t, rows[1].Cost.Equal(dec("25")))
	assert.True(t, rows[2].Before.Equal(dec("10")))
	assert.True(t, rows[2].After.Equal(dec("6")))
	assert.Equal(t, "stock change", rows[2].Reason)

	assert.True(t, h.reload(t, stock.ID).Quantity.Equal(dec("6")))
	assert.Equal(t, int64(2), h.events(t, enums.EventStockAdded))
	assert.Equal(t, int64(1), h.events(t, enums.EventStockTaken))
}

func TestPutAndTakeAreInverse(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "3.5")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("1.25")})
	require.NoError(t, err)
	after, err := h.svc.Take(ctx, stock.ID, TakeInput{Quantity: dec("1.25")})
	require.NoError(t, err)
	assert.True(t, after.Quantity.Equal(dec("3.5")))
}

func TestTakeMoreThanAvailable(t *testing.T) {
	h := newHarness(t, nil, nil)
	stock := h.create(t, "6")

	_, err := h.svc.Take(context.Background(), stock.ID, TakeInput{Quantity: dec("7")})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotEnoughStock, typed.Code())
	assert.Equal(t, "tried to take 7 but only 6 is available", typed.Message())

	assert.True(t, h.reload(t, stock.ID).Quantity.Equal(dec("6")))
	assert.Len(t, h.movements(t, stock.ID), 1)
}

func TestRejectsInvalidQuantity(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "2")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("-1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))
	_, err = h.svc.Take(ctx, stock.ID, TakeInput{Quantity: dec("-0.5")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))

	assert.True(t, h.reload(t, stock.ID).Quantity.Equal(dec("2")))
	assert.Len(t, h.movements(t, stock.ID), 1)
}

func TestRejectsQuantityBeyondStoredScale(t *testing.T) {
	h := newHarness(t, nil, func(cfg *config.InventoryConfig) {
		cfg.AllowDuplicateMovements = false
	})
	stock := h.create(t, "10")

	_, err := h.svc.Put(context.Background(), stock.ID, PutInput{Quantity: dec("0.00001")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidQuantity))

	got, err := h.svc.Put(context.Background(), stock.ID, PutInput{Quantity: dec("0.0001")})
	require.NoError(t, err)
	assert.Equal(t, "10.0001", got.Quantity.String())
	assert.Len(t, h.movements(t, stock.ID), 2)
}

func TestCommittedChangeLogsOwner(t *testing.T) {
	h := newHarness(t, nil, nil)
	stock := h.create(t, "1")
	h.logs.Reset()

	_, err := h.svc.Put(context.Background(), stock.ID, PutInput{Quantity: dec("2")})
	require.NoError(t, err)
	out := h.logs.String()
	assert.Contains(t, out, `"owner_kind":"item"`)
	assert.Contains(t, out, `"owner_id":"`+h.owner.ID+`"`)
	assert.Contains(t, out, "stock change committed")
}

func TestUnknownStock(t *testing.T) {
	h := newHarness(t, nil, nil)

	_, err := h.svc.Put(context.Background(), uuid.New(), PutInput{Quantity: dec("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockNotFound))
	_, err = h.svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockNotFound))
}

func TestDuplicateMovementsSuppressed(t *testing.T) {
	h := newHarness(t, nil, func(cfg *config.InventoryConfig) {
		cfg.AllowDuplicateMovements = false
	})
	stock := h.create(t, "4")

	got, err := h.svc.Put(context.Background(), stock.ID, PutInput{Quantity: decimal.Zero})
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(dec("4")))
	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, h.movements(t, stock.ID), 1)
}

func TestDuplicateMovementsAllowed(t *testing.T) {
	h := newHarness(t, nil, nil)
	stock := h.create(t, "4")

	_, err := h.svc.Take(context.Background(), stock.ID, TakeInput{Quantity: decimal.Zero})
	require.NoError(t, err)
	rows := h.movements(t, stock.ID)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].Delta().IsZero())
}

func TestRollbackLatestMovement(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "5")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("10"), Cost: dec("3")})
	require.NoError(t, err)
	put := h.movements(t, stock.ID)[1]

	got, err := h.svc.Rollback(ctx, stock.ID, RollbackInput{})
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(dec("5")))

	rows := h.movements(t, stock.ID)
	require.Len(t, rows, 3)
	rollback := rows[2]
	assert.Contains(t, rollback.Reason, put.ID.String())
	assert.True(t, rollback.Delta().Equal(dec("-10")))
	assert.True(t, rollback.Cost.Equal(dec("-3")))
	assert.Equal(t, int64(1), h.events(t, enums.EventStockRollback))
}

func TestRollbackWithoutCost(t *testing.T) {
	h := newHarness(t, nil, func(cfg *config.InventoryConfig) {
		cfg.RollbackCost = false
	})
	ctx := context.Background()
	stock := h.create(t, "0")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("2"), Cost: dec("9")})
	require.NoError(t, err)
	_, err = h.svc.Rollback(ctx, stock.ID, RollbackInput{})
	require.NoError(t, err)

	rows := h.movements(t, stock.ID)
	assert.True(t, rows[len(rows)-1].Cost.IsZero())
}

func TestRollbackSpecificMovement(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "0")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("5")})
	require.NoError(t, err)
	_, err = h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("3")})
	require.NoError(t, err)
	first := h.movements(t, stock.ID)[1]

	got, err := h.svc.Rollback(ctx, stock.ID, RollbackInput{MovementID: &first.ID})
	require.NoError(t, err)
	assert.True(t, got.Quantity.Equal(dec("3")))
}

func TestRollbackRecursive(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "0")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("5")})
	require.NoError(t, err)
	_, err = h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("3")})
	require.NoError(t, err)
	_, err = h.svc.Take(ctx, stock.ID, TakeInput{Quantity: dec("2")})
	require.NoError(t, err)
	target := h.movements(t, stock.ID)[1]

	got, err := h.svc.Rollback(ctx, stock.ID, RollbackInput{MovementID: &target.ID, Recursive: true})
	require.NoError(t, err)
	assert.True(t, got.Quantity.IsZero())

	rows := h.movements(t, stock.ID)
	require.Len(t, rows, 7)
	assert.True(t, rows[4].Delta().Equal(dec("2")), "newest movement is undone first")
	assert.True(t, rows[5].Delta().Equal(dec("-3")))
	assert.True(t, rows[6].Delta().Equal(dec("-5")))
	assert.Contains(t, rows[6].Reason, target.ID.String())
}

func TestRollbackBelowZero(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "0")

	_, err := h.svc.Put(ctx, stock.ID, PutInput{Quantity: dec("5")})
	require.NoError(t, err)
	put := h.movements(t, stock.ID)[1]
	_, err = h.svc.Take(ctx, stock.ID, TakeInput{Quantity: dec("5")})
	require.NoError(t, err)

	_, err = h.svc.Rollback(ctx, stock.ID, RollbackInput{MovementID: &put.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotEnoughStock))
	assert.True(t, h.reload(t, stock.ID).Quantity.IsZero())
}

func TestRollbackUnknownMovement(t *testing.T) {
	h := newHarness(t, nil, nil)
	stock := h.create(t, "1")
	missing := uuid.New()

	_, err := h.svc.Rollback(context.Background(), stock.ID, RollbackInput{MovementID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidMovement))
}

func TestMoveTo(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "8")

	target := &models.Location{Name: "B2"}
	require.NoError(t, h.client.DB().Create(target).Error)

	moved, err := h.svc.MoveTo(ctx, stock.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.ID, moved.LocationID)
	assert.True(t, moved.Quantity.Equal(dec("8")))
	assert.Len(t, h.movements(t, stock.ID), 1)
	assert.Equal(t, int64(1), h.events(t, enums.EventStockMoved))
	assert.Equal(t, target.ID, h.reload(t, stock.ID).LocationID)
}

func TestMoveToOccupiedLocation(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	first := h.create(t, "1")

	other := &models.Location{Name: "B2"}
	require.NoError(t, h.client.DB().Create(other).Error)
	_, err := h.svc.Create(ctx, CreateInput{Owner: h.owner, LocationID: other.ID, Quantity: dec("2")})
	require.NoError(t, err)

	_, err = h.svc.MoveTo(ctx, first.ID, other.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStockAlreadyExists))
}

func TestNoActiveUser(t *testing.T) {
	h := newHarness(t, identity.Anonymous(), nil)

	_, err := h.svc.Create(context.Background(), CreateInput{Owner: h.owner, LocationID: h.location.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNoActiveUser))
}

func TestAllowNoUser(t *testing.T) {
	h := newHarness(t, identity.Anonymous(), func(cfg *config.InventoryConfig) {
		cfg.AllowNoUser = true
	})
	stock := h.create(t, "1")

	assert.Nil(t, stock.UserID)
	assert.Nil(t, h.movements(t, stock.ID)[0].UserID)
}

func TestTotalAcrossLocations(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	h.create(t, "2.5")
	other := &models.Location{Name: "B2"}
	require.NoError(t, h.client.DB().Create(other).Error)
	_, err := h.svc.Create(ctx, CreateInput{Owner: h.owner, LocationID: other.ID, Quantity: dec("4")})
	require.NoError(t, err)

	total, err := h.svc.Total(ctx, h.owner)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("6.5")), "got %s", total)

	rows, err := h.svc.ListByOwner(ctx, h.owner)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestUpdateQuantityDetectsStaleVersion(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	stock := h.create(t, "1")

	fresh := h.reload(t, stock.ID)
	require.NoError(t, h.client.WithTx(ctx, func(tx *gorm.DB) error {
		return h.stocks.WithTx(tx).UpdateQuantity(ctx, fresh, dec("2"))
	}))

	stale := *stock
	err := h.stocks.UpdateQuantity(ctx, &stale, dec("9"))
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.True(t, h.reload(t, stock.ID).Quantity.Equal(dec("2")))

	assert.True(t, pkgerrors.IsCode(writeError(err), pkgerrors.CodeConflict))
}

type fakeLockStore struct {
	held     map[string]string
	released []string
}

func (f *fakeLockStore) LockKey(scope, id string) string { return scope + ":" + id }

func (f *fakeLockStore) AcquireLock(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	if _, ok := f.held[key]; ok {
		return false, nil
	}
	f.held[key] = owner
	return true, nil
}

func (f *fakeLockStore) ReleaseLock(_ context.Context, key, owner string) error {
	if f.held[key] == owner {
		delete(f.held, key)
		f.released = append(f.released, key)
	}
	return nil
}

func TestRedisLocker(t *testing.T) {
	store := &fakeLockStore{held: map[string]string{}}
	locker, err := NewRedisLocker(store, time.Second, nil)
	require.NoError(t, err)
	id := uuid.New()

	unlock, err := locker.Lock(context.Background(), id)
	require.NoError(t, err)

	_, err = locker.Lock(context.Background(), id)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	unlock()
	assert.Equal(t, []string{"stock:" + id.String()}, store.released)

	unlock, err = locker.Lock(context.Background(), id)
	require.NoError(t, err)
	unlock()
}
