package repository

import (
	"context"

	"pointshop/internal/model"
	"pointshop/pkg/pagination"

	"gorm.io/gorm"
)

type PointHistoryRepository struct {
	db *gorm.DB
}

func NewPointHistoryRepository(db *gorm.DB) *PointHistoryRepository {
	return &PointHistoryRepository{db: db}
}

func (r *PointHistoryRepository) Create(ctx context.Context, tx *gorm.DB, history *model.PointHistory) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(history).Error
}

// ListByUserID 偏移分页查询流水，按发生时间倒序
func (r *PointHistoryRepository) ListByUserID(ctx context.Context, userID int64, offset, limit int) ([]*model.PointHistory, int64, error) {
	var histories []*model.PointHistory
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PointHistory{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&histories).Error

	return histories, total, err
}

// ListByUserIDCursor 游标分页查询流水
// direction=next 取游标之前（更旧）的记录，prev 取更新的记录。
// 调用方多取一条用于判断是否还有下一页。
func (r *PointHistoryRepository) ListByUserIDCursor(ctx context.Context, userID int64, cursorID int64, limit int, direction string) ([]*model.PointHistory, error) {
	var histories []*model.PointHistory

	query := r.db.WithContext(ctx).Model(&model.PointHistory{}).Where("user_id = ?", userID)

	if direction == pagination.DirectionPrev {
		if cursorID > 0 {
			query = query.Where("id > ?", cursorID)
		}
		query = query.Order("id ASC")
	} else {
		if cursorID > 0 {
			query = query.Where("id < ?", cursorID)
		}
		query = query.Order("id DESC")
	}

	err := query.Limit(limit).Find(&histories).Error
	return histories, err
}

// SumAmountByUserID 流水净额，必须等于用户当前余额
func (r *PointHistoryRepository) SumAmountByUserID(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.PointHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
