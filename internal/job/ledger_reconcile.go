package job

import (
	"context"
	"log"
	"time"

	"pointshop/internal/config"
	"pointshop/internal/infrastructure/lock"
	"pointshop/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerReconcileJob 积分对账任务
//
// 不变量：任意用户的流水 amount 求和 == 当前余额。
// 流水和余额总在同一事务内变更，正常情况下恒成立；
// 这里周期性全量核对，一旦出现偏差立刻留痕报警。
// 多实例部署时用分布式锁保证每轮只有一个实例在跑。
type LedgerReconcileJob struct {
	userRepo    *repository.UserRepository
	historyRepo *repository.PointHistoryRepository
	redisClient *redis.Client
	interval    time.Duration
	batchSize   int
}

func NewLedgerReconcileJob(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *LedgerReconcileJob {
	interval := time.Duration(cfg.Business.ReconcileIntervalSecond) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LedgerReconcileJob{
		userRepo:    repository.NewUserRepository(db),
		historyRepo: repository.NewPointHistoryRepository(db),
		redisClient: redisClient,
		interval:    interval,
		batchSize:   200,
	}
}

func (j *LedgerReconcileJob) Start(ctx context.Context) {
	log.Println("[LedgerReconcile] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LedgerReconcile] 收到停止信号，任务退出")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *LedgerReconcileJob) runOnce(ctx context.Context) {
	reconcileLock := lock.NewReconcileLock(j.redisClient, uuid.New().String(), j.interval)
	acquired, err := reconcileLock.TryLock(ctx)
	if err != nil {
		log.Printf("[LedgerReconcile] 获取任务锁失败: %v", err)
		return
	}
	if !acquired {
		// 别的实例在跑这轮
		return
	}
	defer reconcileLock.Unlock(ctx)

	mismatched, checked := j.ReconcileAll(ctx)
	if mismatched > 0 {
		log.Printf("[LedgerReconcile] 对账完成: 核对 %d 个用户，发现 %d 处不一致", checked, mismatched)
	}
}

// ReconcileAll 全量核对，返回不一致数与核对总数
func (j *LedgerReconcileJob) ReconcileAll(ctx context.Context) (mismatched, checked int) {
	var afterID int64
	for {
		ids, err := j.userRepo.ListIDsAfter(ctx, afterID, j.batchSize)
		if err != nil {
			log.Printf("[LedgerReconcile] 扫描用户失败: %v", err)
			return
		}
		if len(ids) == 0 {
			return
		}

		for _, userID := range ids {
			checked++
			if !j.reconcileUser(ctx, userID) {
				mismatched++
			}
		}
		afterID = ids[len(ids)-1]
	}
}

func (j *LedgerReconcileJob) reconcileUser(ctx context.Context, userID int64) bool {
	user, err := j.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		log.Printf("[LedgerReconcile] 查询用户失败: userID=%d, err=%v", userID, err)
		return true
	}

	sum, err := j.historyRepo.SumAmountByUserID(ctx, userID)
	if err != nil {
		log.Printf("[LedgerReconcile] 汇总流水失败: userID=%d, err=%v", userID, err)
		return true
	}

	if sum != user.Point {
		log.Printf("[LedgerReconcile] 账实不符: userID=%d, 余额=%d, 流水净额=%d", userID, user.Point, sum)
		return false
	}
	return true
}
