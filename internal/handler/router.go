package handler

import (
	"pointshop/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)
	auth := AuthMiddleware(h.authService)

	// 认证
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	// 用户
	users := r.Group("/users")
	{
		users.POST("", h.Register) // 注册别名
		users.GET("/profile", auth, h.GetProfile)
		users.GET("/:id", auth, h.GetUser)
		users.POST("/:id/points", auth, h.ChargePoint)
		users.GET("/:id/point-history", auth, h.GetPointHistory)
	}

	// 商品
	products := r.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/:id", h.GetProduct)
	}
	r.POST("/admin/products", h.CreateProduct)

	// 订单
	orders := r.Group("/orders", auth)
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
