package repository

import (
	"context"
	"errors"

	"pointshop/internal/model"
	"pointshop/pkg/apperr"

	"gorm.io/gorm"
)

var (
	ErrProductNotFound = apperr.New(apperr.KindNotFound, "商品不存在")
	ErrStockNotEnough  = apperr.New(apperr.KindInsufficientStock, "该商品库存不足")
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID 按主键查询商品，tx 为 nil 时走默认连接
func (r *ProductRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Product, error) {
	if tx == nil {
		tx = r.db
	}
	var product model.Product
	err := tx.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// List 商品列表，新品在前
func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]*model.Product, int64, error) {
	var products []*model.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Product{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&products).Error

	return products, total, err
}

// DeductStock 条件扣减库存
//
// 【关键点】这是整个购买链路的正确性核心：
// stock >= quantity 的判断和扣减在同一条 UPDATE 里原子完成，
// 并发购买同一商品时由它裁决谁成功——超卖窗口被彻底关闭。
// 「先读库存、再比较、再无条件扣减」的写法会重新引入竞态，不允许。
func (r *ProductRepository) DeductStock(ctx context.Context, tx *gorm.DB, productID int64, quantity int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, tx, productID); err != nil {
			return err
		}
		return ErrStockNotEnough
	}

	return nil
}
