package repository

import (
	"context"
	"errors"
	"time"

	"pointshop/internal/model"
	"pointshop/pkg/apperr"

	"gorm.io/gorm"
)

var ErrOrderNotFound = apperr.New(apperr.KindNotFound, "订单不存在")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UserOrderRow 订单列表行，带商品名投影
type UserOrderRow struct {
	OrderID     int64     `json:"order_id"`
	OrderNo     string    `json:"order_no"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product"`
	Quantity    int       `json:"quantity"`
	TotalPrice  int64     `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListByUserID 用户订单列表，按下单时间倒序
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]*UserOrderRow, error) {
	var rows []*UserOrderRow
	err := r.db.WithContext(ctx).
		Table("purchase_order").
		Select("purchase_order.id AS order_id, purchase_order.order_no, purchase_order.product_id, "+
			"product.name AS product_name, purchase_order.quantity, purchase_order.total_price, purchase_order.created_at").
		Joins("JOIN product ON product.id = purchase_order.product_id").
		Where("purchase_order.user_id = ?", userID).
		Order("purchase_order.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// CountByUserID 用户订单数，对账与测试用
func (r *OrderRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}
