package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pointshop/internal/config"
	"pointshop/internal/infrastructure/cache"
	"pointshop/internal/model"
	"pointshop/internal/repository"
	"pointshop/pkg/idgen"

	"gorm.io/gorm"
)

type OrderService struct {
	db           *gorm.DB
	cfg          *config.Config
	userRepo     *repository.UserRepository
	productRepo  *repository.ProductRepository
	orderRepo    *repository.OrderRepository
	historyRepo  *repository.PointHistoryRepository
	outboxRepo   *repository.OutboxRepository
	productCache *cache.ProductCache
}

func NewOrderService(db *gorm.DB, cfg *config.Config, productCache *cache.ProductCache) *OrderService {
	return &OrderService{
		db:           db,
		cfg:          cfg,
		userRepo:     repository.NewUserRepository(db),
		productRepo:  repository.NewProductRepository(db),
		orderRepo:    repository.NewOrderRepository(db),
		historyRepo:  repository.NewPointHistoryRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
		productCache: productCache,
	}
}

type PurchaseRequest struct {
	UserID    int64
	ProductID int64
	Quantity  int // 1..100，缺省按 1 处理
}

// Purchase 购买商品，整个系统最核心的操作
//
// 【关键点】校验和变更全部发生在同一个数据库事务里：
//  1. 事务内读用户 —— 不存在返回用户不存在
//  2. 事务内读商品 —— 不存在返回商品不存在
//  3. total_price = price * quantity
//  4. 事务内读到的余额 < total_price —— 积分不足
//     （必须用事务内的读数，事务外的旧快照在并发下不可信）
//  5. 条件扣库存（stock >= quantity 写进 WHERE）—— 0 行则库存不足
//  6. 条件扣积分（point >= total_price 写进 WHERE）
//  7. 写订单，total_price 固化下单时刻的价格
//  8. 写积分流水（-total_price, USE）与出库事件
//
// 任意一步失败整个事务回滚，不存在「扣了库存没出订单」的中间态。
// 校验顺序固定为 用户 → 商品 → 积分 → 库存，多个条件同时不满足时
// 客户端看到的错误由该顺序决定。
// 业务失败对本次请求是终态，不做自动重试。
func (s *OrderService) Purchase(ctx context.Context, req *PurchaseRequest) (int64, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	var orderID int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByID(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		product, err := s.productRepo.GetByID(ctx, tx, req.ProductID)
		if err != nil {
			return err
		}

		totalPrice := product.Price * int64(quantity)

		if user.Point < totalPrice {
			return repository.ErrPointNotEnough
		}

		if err := s.productRepo.DeductStock(ctx, tx, product.ID, quantity); err != nil {
			return err
		}

		// 余额校验已过，这里仍走条件扣减：
		// 同一用户的并发购买可能在校验后、扣减前先提交别的订单
		if err := s.userRepo.DeductPoint(ctx, tx, user.ID, totalPrice); err != nil {
			return err
		}

		order := &model.Order{
			OrderNo:    idgen.GenerateOrderNo(),
			UserID:     user.ID,
			ProductID:  product.ID,
			Quantity:   quantity,
			TotalPrice: totalPrice,
		}
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("创建订单失败: %w", err)
		}

		history := &model.PointHistory{
			UserID:      user.ID,
			Amount:      -totalPrice,
			Type:        model.PointTypeUse,
			Description: fmt.Sprintf("商品购买 (订单 ID: %d)", order.ID),
		}
		if err := s.historyRepo.Create(ctx, tx, history); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"order_id":    order.ID,
			"order_no":    order.OrderNo,
			"user_id":     user.ID,
			"product_id":  product.ID,
			"quantity":    quantity,
			"total_price": totalPrice,
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: order.OrderNo,
			Topic:      s.cfg.Kafka.Topic.OrderPlaced,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	// 库存已变，失效详情缓存
	s.productCache.Invalidate(ctx, req.ProductID)

	log.Printf("购买成功: orderID=%d, userID=%d, productID=%d, quantity=%d",
		orderID, req.UserID, req.ProductID, quantity)

	return orderID, nil
}

// ListUserOrders 用户订单列表，归属校验在 handler 完成
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]*repository.UserOrderRow, error) {
	return s.orderRepo.ListByUserID(ctx, userID)
}
