package model

import (
	"time"
)

// Product 商品表
// stock 任何已提交事务之后都必须 >= 0，扣减只走条件更新
type Product struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"` // 积分单价
	Stock     int64     `gorm:"not null;default:0" json:"stock"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}

// IsSoldOut 是否售罄，列表/详情接口的投影字段
func (p *Product) IsSoldOut() bool {
	return p.Stock <= 0
}
