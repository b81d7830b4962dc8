package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pointshop/internal/config"
	"pointshop/internal/model"
	"pointshop/internal/repository"
	"pointshop/pkg/apperr"
	"pointshop/pkg/pagination"

	"gorm.io/gorm"
)

type UserService struct {
	db          *gorm.DB
	cfg         *config.Config
	userRepo    *repository.UserRepository
	historyRepo *repository.PointHistoryRepository
	outboxRepo  *repository.OutboxRepository
}

func NewUserService(db *gorm.DB, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		cfg:         cfg,
		userRepo:    repository.NewUserRepository(db),
		historyRepo: repository.NewPointHistoryRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// UserProfile 用户详情，含积分余额
type UserProfile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Point int64  `json:"point"`
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{ID: user.ID, Email: user.Email, Name: user.Name, Point: user.Point}, nil
}

// ChargePoint 积分充值
// 余额递增、流水写入、事件落库在同一事务内完成。
// 充值不会破坏余额非负不变量，无需条件判断，但余额读数
// 必须取事务内更新后的值，不能用事务外的旧快照推算。
func (s *UserService) ChargePoint(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperr.New(apperr.KindValidation, "充值金额必须大于0")
	}

	var pointAfter int64

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.ChargePoint(ctx, tx, userID, amount); err != nil {
			return err
		}

		user, err := s.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("查询充值后余额失败: %w", err)
		}
		pointAfter = user.Point

		history := &model.PointHistory{
			UserID:      userID,
			Amount:      amount,
			Type:        model.PointTypeCharge,
			Description: "积分充值",
		}
		if err := s.historyRepo.Create(ctx, tx, history); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"user_id":     userID,
			"amount":      amount,
			"point_after": pointAfter,
			"charged_at":  time.Now().Format(time.RFC3339),
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: fmt.Sprintf("user-%d", userID),
			Topic:      s.cfg.Kafka.Topic.PointCharged,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("充值成功: userID=%d, amount=%d, pointAfter=%d", userID, amount, pointAfter)
	return pointAfter, nil
}

// PointHistoryItem 流水条目
type PointHistoryItem struct {
	ID          int64     `json:"id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toHistoryItems(histories []*model.PointHistory) []*PointHistoryItem {
	items := make([]*PointHistoryItem, 0, len(histories))
	for _, h := range histories {
		items = append(items, &PointHistoryItem{
			ID:          h.ID,
			Amount:      h.Amount,
			Type:        h.Type,
			Description: h.Description,
			CreatedAt:   h.CreatedAt,
		})
	}
	return items
}

// GetPointHistory 偏移分页查询积分流水
func (s *UserService) GetPointHistory(ctx context.Context, userID int64, q *pagination.OffsetQuery) ([]*PointHistoryItem, pagination.OffsetMeta, error) {
	q.Normalize()

	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		return nil, pagination.OffsetMeta{}, err
	}

	histories, total, err := s.historyRepo.ListByUserID(ctx, userID, q.Offset(), q.Limit)
	if err != nil {
		return nil, pagination.OffsetMeta{}, fmt.Errorf("查询流水失败: %w", err)
	}

	return toHistoryItems(histories), pagination.NewOffsetMeta(q.Page, q.Limit, total), nil
}

// GetPointHistoryByCursor 游标分页查询积分流水
// 多取一条判断还有没有更多页，游标取自边界记录的 ID。
func (s *UserService) GetPointHistoryByCursor(ctx context.Context, userID int64, q *pagination.CursorQuery) ([]*PointHistoryItem, pagination.CursorMeta, error) {
	q.Normalize()

	if _, err := s.userRepo.GetByID(ctx, nil, userID); err != nil {
		return nil, pagination.CursorMeta{}, err
	}

	var cursorID int64
	if q.Cursor != "" {
		id, err := pagination.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, pagination.CursorMeta{}, apperr.Wrap(err, apperr.KindValidation, "无效的游标")
		}
		cursorID = id
	}

	histories, err := s.historyRepo.ListByUserIDCursor(ctx, userID, cursorID, q.Limit+1, q.Direction)
	if err != nil {
		return nil, pagination.CursorMeta{}, fmt.Errorf("查询流水失败: %w", err)
	}

	hasMore := len(histories) > q.Limit
	if hasMore {
		histories = histories[:q.Limit]
	}

	meta := pagination.CursorMeta{Limit: q.Limit}
	if q.Direction == pagination.DirectionPrev {
		// prev 方向按 ID 升序取数，响应前翻回倒序
		for i, j := 0, len(histories)-1; i < j; i, j = i+1, j-1 {
			histories[i], histories[j] = histories[j], histories[i]
		}
		meta.HasPrevious = hasMore
		meta.HasNext = q.Cursor != ""
	} else {
		meta.HasNext = hasMore
		meta.HasPrevious = q.Cursor != ""
	}

	if len(histories) > 0 {
		if meta.HasNext {
			meta.NextCursor = pagination.EncodeCursor(histories[len(histories)-1].ID)
		}
		if meta.HasPrevious {
			meta.PreviousCursor = pagination.EncodeCursor(histories[0].ID)
		}
	}

	return toHistoryItems(histories), meta, nil
}
