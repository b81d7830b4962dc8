package model

import (
	"time"
)

// User 用户表
// point 是用户的可消费积分余额，任何已提交事务之后都必须 >= 0
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt 哈希，永不下发
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Point     int64     `gorm:"not null;default:0" json:"point"` // 积分余额
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}
