package model

import (
	"time"
)

const (
	PointTypeCharge = "CHARGE" // 充值，amount 为正
	PointTypeUse    = "USE"    // 消费，amount 为负
)

// PointHistory 积分流水表
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 与引起变动的操作在同一事务内写入
// 3. 任意用户流水 amount 求和必须等于当前余额 —— 对账依据
type PointHistory struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	Amount      int64     `gorm:"not null" json:"amount"` // 正数充值，负数消费
	Type        string    `gorm:"type:varchar(20);not null" json:"type"`
	Description string    `gorm:"type:varchar(256)" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PointHistory) TableName() string {
	return "point_history"
}
