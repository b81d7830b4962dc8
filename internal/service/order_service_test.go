package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"pointshop/internal/config"
	"pointshop/internal/infrastructure/cache"
	"pointshop/internal/infrastructure/database"
	"pointshop/internal/model"
	"pointshop/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试独立的内存库。
// 单连接串行化所有事务，避免 SQLite 并发写锁冲突干扰断言。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireMinutes = 60
	cfg.Kafka.Topic.OrderPlaced = "test.order.placed"
	cfg.Kafka.Topic.PointCharged = "test.point.charged"
	cfg.Business.MaxRetryCount = 3
	return cfg
}

func newTestOrderService(db *gorm.DB) *OrderService {
	return NewOrderService(db, newTestConfig(), cache.NewProductCache(nil, 0))
}

func seedUser(t *testing.T, db *gorm.DB, point int64) *model.User {
	t.Helper()
	user := &model.User{
		Email:    fmt.Sprintf("user%d@test.local", point),
		Password: "hashed",
		Name:     "tester",
		Point:    point,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, price, stock int64) *model.Product {
	t.Helper()
	product := &model.Product{Name: "widget", Price: price, Stock: stock}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestPurchaseSuccess(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 1000)
	product := seedProduct(t, db, 300, 2)

	orderID, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.NotZero(t, orderID)

	var order model.Order
	require.NoError(t, db.First(&order, orderID).Error)
	require.Equal(t, user.ID, order.UserID)
	require.Equal(t, product.ID, order.ProductID)
	require.Equal(t, 2, order.Quantity)
	require.EqualValues(t, 600, order.TotalPrice)
	require.NotEmpty(t, order.OrderNo)

	var updatedUser model.User
	require.NoError(t, db.First(&updatedUser, user.ID).Error)
	require.EqualValues(t, 400, updatedUser.Point)

	var updatedProduct model.Product
	require.NoError(t, db.First(&updatedProduct, product.ID).Error)
	require.EqualValues(t, 0, updatedProduct.Stock)

	var histories []model.PointHistory
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&histories).Error)
	require.Len(t, histories, 1)
	require.EqualValues(t, -600, histories[0].Amount)
	require.Equal(t, model.PointTypeUse, histories[0].Type)
	require.Contains(t, histories[0].Description, fmt.Sprintf("%d", orderID))

	var outbox []model.OutboxMessage
	require.NoError(t, db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	require.Equal(t, "test.order.placed", outbox[0].Topic)
	require.Equal(t, model.OutboxStatusPending, outbox[0].Status)
}

// 快照语义：下单后改价不影响历史订单
func TestPurchasePriceSnapshot(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 1000)
	product := seedProduct(t, db, 300, 5)

	orderID, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, db.Model(&model.Product{}).Where("id = ?", product.ID).Update("price", 999).Error)

	var order model.Order
	require.NoError(t, db.First(&order, orderID).Error)
	require.EqualValues(t, 300, order.TotalPrice)
}

func TestPurchaseDefaultQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 1000)
	product := seedProduct(t, db, 300, 2)

	orderID, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID})
	require.NoError(t, err)

	var order model.Order
	require.NoError(t, db.First(&order, orderID).Error)
	require.Equal(t, 1, order.Quantity)
	require.EqualValues(t, 300, order.TotalPrice)
}

// requireNoSideEffects 断言失败的购买没有留下任何痕迹
func requireNoSideEffects(t *testing.T, db *gorm.DB, userID int64, wantPoint int64, productID int64, wantStock int64) {
	t.Helper()

	var user model.User
	require.NoError(t, db.First(&user, userID).Error)
	require.Equal(t, wantPoint, user.Point)

	var product model.Product
	require.NoError(t, db.First(&product, productID).Error)
	require.Equal(t, wantStock, product.Stock)

	var orderCount, historyCount, outboxCount int64
	require.NoError(t, db.Model(&model.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&model.PointHistory{}).Count(&historyCount).Error)
	require.NoError(t, db.Model(&model.OutboxMessage{}).Count(&outboxCount).Error)
	require.Zero(t, orderCount)
	require.Zero(t, historyCount)
	require.Zero(t, outboxCount)
}

func TestPurchaseInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 1000)
	product := seedProduct(t, db, 300, 2)

	_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 3})
	require.ErrorIs(t, err, repository.ErrStockNotEnough)

	requireNoSideEffects(t, db, user.ID, 1000, product.ID, 2)
}

func TestPurchaseInsufficientPoints(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 100)
	product := seedProduct(t, db, 300, 10)

	_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	require.ErrorIs(t, err, repository.ErrPointNotEnough)

	requireNoSideEffects(t, db, user.ID, 100, product.ID, 10)
}

func TestPurchaseUserNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	product := seedProduct(t, db, 300, 10)

	_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: 9999, ProductID: product.ID, Quantity: 1})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestPurchaseProductNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 1000)

	_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: 9999, Quantity: 1})
	require.ErrorIs(t, err, repository.ErrProductNotFound)
}

// 校验顺序固定为 用户 → 商品，两者都不存在时报用户不存在
func TestPurchaseValidationOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)

	_, err := svc.Purchase(context.Background(), &PurchaseRequest{UserID: 9999, ProductID: 8888, Quantity: 1})
	require.ErrorIs(t, err, repository.ErrUserNotFound)
	require.NotErrorIs(t, err, repository.ErrProductNotFound)
}

// 超卖保护：库存 S，N(>S) 个并发买家各买 1 件，恰好 S 人成功
func TestPurchaseNoOversell(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	const (
		stock  = 3
		buyers = 8
	)

	product := seedProduct(t, db, 100, stock)
	users := make([]*model.User, buyers)
	for i := range users {
		user := &model.User{
			Email:    fmt.Sprintf("buyer%d@test.local", i),
			Password: "hashed",
			Name:     "buyer",
			Point:    1000,
		}
		require.NoError(t, db.Create(user).Error)
		users[i] = user
	}

	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for _, user := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: userID, ProductID: product.ID, Quantity: 1})
			results <- err
		}(user.ID)
	}
	wg.Wait()
	close(results)

	succeeded, stockRejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, repository.ErrStockNotEnough):
			stockRejected++
		default:
			t.Fatalf("购买返回非预期错误: %v", err)
		}
	}
	require.Equal(t, stock, succeeded)
	require.Equal(t, buyers-stock, stockRejected)

	var updatedProduct model.Product
	require.NoError(t, db.First(&updatedProduct, product.ID).Error)
	require.EqualValues(t, 0, updatedProduct.Stock)

	var orderCount int64
	require.NoError(t, db.Model(&model.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, stock, orderCount)
}

// 超扣保护：同一用户并发购买，成交总额不超过初始余额，余额不为负
func TestPurchaseNoOverdraft(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	const attempts = 5

	user := seedUser(t, db, 500)
	product := seedProduct(t, db, 300, 100)

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, repository.ErrPointNotEnough)
		}
	}
	// 500 积分最多买 1 件 300 的商品
	require.Equal(t, 1, succeeded)

	var updatedUser model.User
	require.NoError(t, db.First(&updatedUser, user.ID).Error)
	require.EqualValues(t, 200, updatedUser.Point)
	require.GreaterOrEqual(t, updatedUser.Point, int64(0))
}

// 账实一致：任意时刻流水净额等于当前余额（用户从 0 开始经充值入账）
func TestPurchaseLedgerConsistency(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	orderSvc := NewOrderService(db, cfg, cache.NewProductCache(nil, 0))
	userSvc := NewUserService(db, cfg)
	ctx := context.Background()

	user := seedUser(t, db, 0)
	product := seedProduct(t, db, 250, 10)

	_, err := userSvc.ChargePoint(ctx, user.ID, 1000)
	require.NoError(t, err)

	_, err = orderSvc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = userSvc.ChargePoint(ctx, user.ID, 300)
	require.NoError(t, err)

	_, err = orderSvc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	var updatedUser model.User
	require.NoError(t, db.First(&updatedUser, user.ID).Error)

	sum, err := repository.NewPointHistoryRepository(db).SumAmountByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, updatedUser.Point, sum)
	require.EqualValues(t, 1000-500+300-250, updatedUser.Point)
}

func TestListUserOrders(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrderService(db)
	ctx := context.Background()

	user := seedUser(t, db, 1000)
	product := seedProduct(t, db, 100, 10)

	for i := 0; i < 3; i++ {
		_, err := svc.Purchase(ctx, &PurchaseRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
		require.NoError(t, err)
	}

	rows, err := svc.ListUserOrders(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, "widget", row.ProductName)
		require.EqualValues(t, 100, row.TotalPrice)
	}
}
