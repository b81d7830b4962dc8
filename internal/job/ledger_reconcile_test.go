package job

import (
	"context"
	"fmt"
	"testing"

	"pointshop/internal/config"
	"pointshop/internal/infrastructure/database"
	"pointshop/internal/model"
	"pointshop/internal/service"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func TestReconcileAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.Kafka.Topic.PointCharged = "test.point.charged"

	userService := service.NewUserService(db, cfg)

	// 三个通过正常充值入账的用户，账实一致
	for i := 0; i < 3; i++ {
		user := &model.User{
			Email:    fmt.Sprintf("u%d@test.local", i),
			Password: "x",
			Name:     fmt.Sprintf("u%d", i),
		}
		require.NoError(t, db.WithContext(ctx).Create(user).Error)
		_, err := userService.ChargePoint(ctx, user.ID, 100)
		require.NoError(t, err)
	}

	job := NewLedgerReconcileJob(db, nil, cfg)

	mismatched, checked := job.ReconcileAll(ctx)
	require.Equal(t, 3, checked)
	require.Equal(t, 0, mismatched)

	// 绕过流水直接改余额，制造一处账实不符
	require.NoError(t, db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", "u1@test.local").
		Update("point", 999).Error)

	mismatched, checked = job.ReconcileAll(ctx)
	require.Equal(t, 3, checked)
	require.Equal(t, 1, mismatched)
}
