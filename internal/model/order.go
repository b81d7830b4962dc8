package model

import (
	"time"
)

// Order 订单表
// 只在购买事务内创建，创建后不可变更。
// total_price 是下单时刻 price * quantity 的快照，
// 商品后续改价不影响历史订单。
type Order struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	ProductID  int64     `gorm:"index;not null" json:"product_id"`
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`
	TotalPrice int64     `gorm:"not null" json:"total_price"` // 下单时刻快照
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Order) TableName() string {
	return "purchase_order"
}
