package service

import (
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-farm-market/internal/apperr"
	"go-farm-market/internal/model"
	"go-farm-market/internal/repository"
	"go-farm-market/pkg/database"
	_ "go-farm-market/pkg/database/migrations"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeNotifier records crossing events on a channel so tests can wait for the
// fire-and-forget goroutine.
type fakeNotifier struct {
	events chan model.Product
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(chan model.Product, 16)}
}

func (f *fakeNotifier) NotifyLowStock(p model.Product) { f.events <- p }

func (f *fakeNotifier) waitOne(t *testing.T) model.Product {
	t.Helper()
	select {
	case p := <-f.events:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("expected a low-stock notification")
		return model.Product{}
	}
}

func (f *fakeNotifier) assertNone(t *testing.T) {
	t.Helper()
	select {
	case p := <-f.events:
		t.Fatalf("unexpected low-stock notification for %s", p.Name)
	case <-time.After(100 * time.Millisecond):
	}
}

type fixture struct {
	db       *gorm.DB
	svc      *inventoryService
	notifier *fakeNotifier
	villager Caller
	buyer    Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)

	villager := &model.User{Email: "farmer@example.com", Role: model.RoleVillager, FarmName: "Test Farm"}
	require.NoError(t, villager.SetPassword("password"))
	require.NoError(t, db.Create(villager).Error)

	buyer := &model.User{Email: "buyer@example.com", Role: model.RoleUser}
	require.NoError(t, buyer.SetPassword("password"))
	require.NoError(t, db.Create(buyer).Error)

	notifier := newFakeNotifier()
	svc := NewInventoryService(
		repository.NewProductRepo(db),
		repository.NewTransactionRepo(db),
		db, notifier, nil,
	).(*inventoryService)

	return &fixture{
		db:       db,
		svc:      svc,
		notifier: notifier,
		villager: Caller{ID: villager.ID, Role: model.RoleVillager},
		buyer:    Caller{ID: buyer.ID, Role: model.RoleUser},
	}
}

func (f *fixture) addProduct(t *testing.T, stock, threshold float64) *model.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(f.villager, &CreateProductRequest{
		Name:              "Mango",
		Category:          "Sweet",
		Price:             10,
		Stock:             stock,
		LowStockThreshold: &threshold,
	}, nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return &p
}

func TestPurchaseDecrementsStockAndRecordsSale(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	result, err := f.svc.Purchase(p.ID, f.buyer, 5)
	require.NoError(t, err)

	assert.Equal(t, 95.0, result.Product.Stock)
	assert.False(t, result.LowStockAlert)
	assert.Nil(t, result.Product.LowStockSinceDate)

	var sales []model.Transaction
	require.NoError(t, f.db.Where("product_id = ?", p.ID).Find(&sales).Error)
	require.Len(t, sales, 1)
	assert.Equal(t, 5.0, sales[0].QuantitySold)
	assert.Equal(t, f.buyer.ID, sales[0].BuyerID)
	assert.False(t, sales[0].DateOfSale.IsZero())

	assert.Equal(t, 95.0, f.reload(t, p.ID).Stock)
}

func TestPurchaseRejectsBadQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	for _, qty := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := f.svc.Purchase(p.ID, f.buyer, qty)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve, "quantity %v", qty)
	}

	// Nothing committed
	assert.Equal(t, 100.0, f.reload(t, p.ID).Stock)
	var count int64
	f.db.Model(&model.Transaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestPurchaseUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Purchase(uuid.New(), f.buyer, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPurchaseInsufficientStock(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	_, err := f.svc.Purchase(p.ID, f.buyer, 101)
	var ise *apperr.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 100.0, ise.Available)
	assert.Equal(t, "Insufficient stock. Only 100kg available.", ise.Error())

	// Rejected purchase leaves no trace
	assert.Equal(t, 100.0, f.reload(t, p.ID).Stock)
	var count int64
	f.db.Model(&model.Transaction{}).Count(&count)
	assert.Zero(t, count)
}

func TestPurchaseRequiresBuyerRole(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	_, err := f.svc.Purchase(p.ID, f.villager, 1)
	assert.ErrorIs(t, err, apperr.ErrOnlyUsersPurchase)
	assert.Equal(t, 100.0, f.reload(t, p.ID).Stock)
}

func TestLowStockEpisodeLifecycle(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	// Crossing purchase: stock hits the threshold exactly
	result, err := f.svc.Purchase(p.ID, f.buyer, 90)
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.Product.Stock)
	assert.True(t, result.LowStockAlert)
	require.NotNil(t, result.Product.LowStockSinceDate)
	episodeStart := *result.Product.LowStockSinceDate

	notified := f.notifier.waitOne(t)
	assert.Equal(t, p.ID, notified.ID)
	assert.Equal(t, 10.0, notified.Stock)

	// Still low: date unchanged, no second notification
	result, err = f.svc.Purchase(p.ID, f.buyer, 1)
	require.NoError(t, err)
	assert.Equal(t, 9.0, result.Product.Stock)
	assert.True(t, result.LowStockAlert)
	require.NotNil(t, result.Product.LowStockSinceDate)
	assert.True(t, result.Product.LowStockSinceDate.Equal(episodeStart))
	f.notifier.assertNone(t)

	// Owner restock above threshold ends the episode
	newStock := 20.0
	updated, err := f.svc.UpdateProduct(p.ID, f.villager, &UpdateProductRequest{Stock: &newStock})
	require.NoError(t, err)
	assert.Nil(t, updated.LowStockSinceDate)

	// Above threshold after purchase: stays clear
	result, err = f.svc.Purchase(p.ID, f.buyer, 5)
	require.NoError(t, err)
	assert.Equal(t, 15.0, result.Product.Stock)
	assert.False(t, result.LowStockAlert)
	assert.Nil(t, result.Product.LowStockSinceDate)
	f.notifier.assertNone(t)
}

func TestRestockThresholdChangeReevaluates(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 50, 10)

	// Raising the threshold above current stock starts an episode
	threshold := 60.0
	updated, err := f.svc.UpdateProduct(p.ID, f.villager, &UpdateProductRequest{LowStockThreshold: &threshold})
	require.NoError(t, err)
	require.NotNil(t, updated.LowStockSinceDate)
	f.notifier.waitOne(t)

	// Lowering it back clears the date
	threshold = 10.0
	updated, err = f.svc.UpdateProduct(p.ID, f.villager, &UpdateProductRequest{LowStockThreshold: &threshold})
	require.NoError(t, err)
	assert.Nil(t, updated.LowStockSinceDate)
}

// interleavedRepo mutates the row between the locked read and the write-back,
// modeling a purchase that commits in the middle of an owner update.
type interleavedRepo struct {
	repository.ProductRepository
	betweenReadAndWrite func(tx *gorm.DB)
}

func (r *interleavedRepo) GetForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, err := r.ProductRepository.GetForUpdate(tx, id)
	if err == nil && r.betweenReadAndWrite != nil {
		r.betweenReadAndWrite(tx)
	}
	return p, err
}

func TestUpdateProductWritesOnlyTouchedColumns(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	repo := &interleavedRepo{
		ProductRepository: repository.NewProductRepo(f.db),
		betweenReadAndWrite: func(tx *gorm.DB) {
			require.NoError(t, tx.Model(&model.Product{}).
				Where("id = ?", p.ID).
				Update("stock", gorm.Expr("stock - ?", 5.0)).Error)
		},
	}
	svc := NewInventoryService(repo, repository.NewTransactionRepo(f.db), f.db, f.notifier, nil)

	price := 25.0
	updated, err := svc.UpdateProduct(p.ID, f.villager, &UpdateProductRequest{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Price)

	// The sale's decrement survives a price-only update
	reloaded := f.reload(t, p.ID)
	assert.Equal(t, 25.0, reloaded.Price)
	assert.Equal(t, 95.0, reloaded.Stock)
}

// failingTxRepo refuses the sale append so the whole purchase must roll back.
type failingTxRepo struct {
	repository.TransactionRepository
}

func (r *failingTxRepo) Create(tx *gorm.DB, t *model.Transaction) error {
	return errors.New("append failed")
}

func TestPurchaseRollsBackWhenSaleAppendFails(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	txRepo := repository.NewTransactionRepo(f.db)
	svc := NewInventoryService(
		repository.NewProductRepo(f.db),
		&failingTxRepo{txRepo},
		f.db, f.notifier, nil,
	)

	_, err := svc.Purchase(p.ID, f.buyer, 95)
	require.Error(t, err)
	var se *apperr.StorageError
	assert.ErrorAs(t, err, &se)

	// The decrement and the low-stock date rolled back with the failed append
	reloaded := f.reload(t, p.ID)
	assert.Equal(t, 100.0, reloaded.Stock)
	assert.Nil(t, reloaded.LowStockSinceDate)
	count, err := txRepo.CountByProduct(p.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	f.notifier.assertNone(t)
}

func TestUpdateProductOwnership(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 50, 10)

	stock := 60.0
	_, err := f.svc.UpdateProduct(p.ID, Caller{ID: uuid.New(), Role: model.RoleVillager}, &UpdateProductRequest{Stock: &stock})
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	_, err = f.svc.UpdateProduct(uuid.New(), f.villager, &UpdateProductRequest{Stock: &stock})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateProductDefaultsAndInitialEpisode(t *testing.T) {
	f := newFixture(t)

	// No threshold given: default applies
	p, err := f.svc.CreateProduct(f.villager, &CreateProductRequest{Name: "Rice", Stock: 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultLowStockThreshold, p.LowStockThreshold)
	assert.Nil(t, p.LowStockSinceDate)

	// Created already below threshold: episode starts immediately
	low, err := f.svc.CreateProduct(f.villager, &CreateProductRequest{Name: "Chili", Stock: 3}, nil)
	require.NoError(t, err)
	assert.NotNil(t, low.LowStockSinceDate)

	// Buyers cannot list products
	_, err = f.svc.CreateProduct(f.buyer, &CreateProductRequest{Name: "Nope", Stock: 1}, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestListLowStockOrderingAndAccess(t *testing.T) {
	f := newFixture(t)

	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now().Add(-1 * time.Hour)

	pOld := f.addProduct(t, 5, 10)
	require.NoError(t, f.db.Model(pOld).Update("low_stock_since_date", &older).Error)
	pNew := f.addProduct(t, 4, 10)
	require.NoError(t, f.db.Model(pNew).Update("low_stock_since_date", &newer).Error)
	// Low-stock but never dated: sorts last
	pNull := f.addProduct(t, 200, 10)
	require.NoError(t, f.db.Model(pNull).Updates(map[string]interface{}{
		"stock":                3.0,
		"low_stock_since_date": nil,
	}).Error)
	// Healthy product: excluded
	f.addProduct(t, 100, 10)

	products, err := f.svc.ListLowStock(f.villager)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, pOld.ID, products[0].ID)
	assert.Equal(t, pNew.ID, products[1].ID)
	assert.Equal(t, pNull.ID, products[2].ID)

	_, err = f.svc.ListLowStock(f.buyer)
	assert.ErrorIs(t, err, apperr.ErrOnlyVillagers)
}

func TestHistoryOrderingFilteringAndAccess(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)

	now := time.Now()
	insert := func(qty float64, at time.Time) {
		require.NoError(t, f.db.Create(&model.Transaction{
			ProductID:    p.ID,
			BuyerID:      f.buyer.ID,
			QuantitySold: qty,
			DateOfSale:   at,
		}).Error)
	}
	insert(1.0, now.Add(-120*time.Second))
	insert(2.0, now.Add(-60*time.Second))

	// Most recent first
	history, err := f.svc.History(p.ID, f.villager, nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2.0, history[0].QuantitySold)
	assert.Equal(t, 1.0, history[1].QuantitySold)
	assert.Equal(t, "buyer@example.com", history[0].BuyerEmail)

	// days filter keeps only the last 24h
	insert(3.0, now.Add(-(24*time.Hour + 10*time.Second)))
	insert(4.0, now.Add(-(48*time.Hour + 10*time.Second)))
	days := 1
	history, err = f.svc.History(p.ID, f.villager, &days)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2.0, history[0].QuantitySold)

	// Equal timestamps fall back to insertion order, newest id first
	tie := now.Add(-10 * time.Second)
	insert(5.0, tie)
	insert(6.0, tie)
	history, err = f.svc.History(p.ID, f.villager, &days)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, 6.0, history[0].QuantitySold)
	assert.Equal(t, 5.0, history[1].QuantitySold)

	// Non-owner is refused
	_, err = f.svc.History(p.ID, f.buyer, nil)
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	// Bad filter
	bad := 0
	_, err = f.svc.History(p.ID, f.villager, &bad)
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDeleteProductCascades(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 100, 10)
	_, err := f.svc.Purchase(p.ID, f.buyer, 5)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&model.ProductImage{ProductID: p.ID, ImagePath: "123-mango.jpg"}).Error)

	_, err = f.svc.DeleteProduct(p.ID, Caller{ID: uuid.New(), Role: model.RoleVillager})
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	paths, err := f.svc.DeleteProduct(p.ID, f.villager)
	require.NoError(t, err)
	assert.Equal(t, []string{"123-mango.jpg"}, paths)

	var count int64
	f.db.Model(&model.Product{}).Where("id = ?", p.ID).Count(&count)
	assert.Zero(t, count)
	f.db.Model(&model.Transaction{}).Where("product_id = ?", p.ID).Count(&count)
	assert.Zero(t, count)
	f.db.Model(&model.ProductImage{}).Where("product_id = ?", p.ID).Count(&count)
	assert.Zero(t, count)
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, 10, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Purchase(p.ID, f.buyer, 6)
		}(i)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		var ise *apperr.InsufficientStockError
		switch {
		case err == nil:
			successes++
		case errors.As(err, &ise):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one purchase must win")
	assert.Equal(t, 1, insufficient, "the loser must see insufficient stock")

	final := f.reload(t, p.ID)
	assert.Equal(t, 4.0, final.Stock)
	assert.GreaterOrEqual(t, final.Stock, 0.0)

	var count int64
	f.db.Model(&model.Transaction{}).Where("product_id = ?", p.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}
