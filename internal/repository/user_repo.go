package repository

import (
	"context"
	"errors"

	"pointshop/internal/model"
	"pointshop/pkg/apperr"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound   = apperr.New(apperr.KindNotFound, "用户不存在")
	ErrEmailExists    = apperr.New(apperr.KindConflict, "邮箱已被注册")
	ErrPointNotEnough = apperr.New(apperr.KindInsufficientPoints, "积分不足")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 按主键查询用户，tx 为 nil 时走默认连接
func (r *UserRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}
	var user model.User
	err := tx.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 按邮箱查询，不存在时返回 (nil, nil)，由调用方决定语义
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// DeductPoint 条件扣减积分
//
// 【关键点】扣减条件 point >= amount 直接写进 UPDATE 的 WHERE，
// 靠受影响行数判断成败，杜绝「先读后写」的竞态窗口。
// 受影响 0 行时回查一次区分「用户不存在」和「积分不足」。
func (r *UserRepository) DeductPoint(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND point >= ?", userID, amount).
		Update("point", gorm.Expr("point - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, tx, userID); err != nil {
			return err
		}
		return ErrPointNotEnough
	}

	return nil
}

// ChargePoint 增加积分，充值不会破坏非负不变量，无需条件判断
func (r *UserRepository) ChargePoint(ctx context.Context, tx *gorm.DB, userID int64, amount int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("point", gorm.Expr("point + ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListIDsAfter 按主键批量扫描用户 ID，供对账任务分批处理
func (r *UserRepository) ListIDsAfter(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
