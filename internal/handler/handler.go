package handler

import (
	"strconv"
	"time"

	"pointshop/internal/config"
	"pointshop/internal/infrastructure/cache"
	"pointshop/internal/service"
	"pointshop/pkg/apperr"
	"pointshop/pkg/pagination"
	"pointshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

var errOrderAccessDenied = apperr.New(apperr.KindForbidden, "无权查看其他用户的订单")

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService    *service.AuthService
	userService    *service.UserService
	productService *service.ProductService
	orderService   *service.OrderService
}

// NewHandler 创建处理器实例，rdb 为 nil 时商品缓存自动退化为直查
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	productCache := cache.NewProductCache(rdb, time.Duration(cfg.Business.ProductCacheTTLSecond)*time.Second)
	return &Handler{
		authService:    service.NewAuthService(db, cfg),
		userService:    service.NewUserService(db, cfg),
		productService: service.NewProductService(db, productCache),
		orderService:   service.NewOrderService(db, cfg, productCache),
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.FailValidation(c, name+" 参数错误")
		return 0, false
	}
	return id, true
}

// ============================================================
// 认证相关接口
// ============================================================

// Register 注册
// POST /auth/register（别名 POST /users）
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Created(c, user)
}

// Login 登录，签发访问令牌
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, result)
}

// ============================================================
// 用户相关接口
// ============================================================

// GetProfile 当前用户详情
// GET /users/profile
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.userService.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, profile)
}

// GetUser 按 ID 查询用户
// GET /users/:id
func (h *Handler) GetUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, profile)
}

// ChargePointRequest 充值请求
type ChargePointRequest struct {
	Amount int64 `json:"amount" binding:"required,min=1,max=1000000"`
}

// ChargePoint 积分充值
// POST /users/:id/points
func (h *Handler) ChargePoint(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ChargePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}

	point, err := h.userService.ChargePoint(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.OK(c, gin.H{"point": point})
}

// GetPointHistory 积分流水
// GET /users/:id/point-history?page=&limit=
// 带 cursor 或 direction 参数时切换为游标分页
func (h *Handler) GetPointHistory(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if c.Query("cursor") != "" || c.Query("direction") != "" {
		var q pagination.CursorQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			response.FailValidation(c, "参数错误: "+err.Error())
			return
		}
		items, meta, err := h.userService.GetPointHistoryByCursor(c.Request.Context(), userID, &q)
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.CursorPaginated(c, items, meta)
		return
	}

	var q pagination.OffsetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}
	items, meta, err := h.userService.GetPointHistory(c.Request.Context(), userID, &q)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Paginated(c, items, meta)
}

// ============================================================
// 商品相关接口
// ============================================================

// ListProducts 商品目录
// GET /products?page=&limit=
func (h *Handler) ListProducts(c *gin.Context) {
	var q pagination.OffsetQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}

	products, meta, err := h.productService.List(c.Request.Context(), &q)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Paginated(c, products, meta)
}

// GetProduct 商品详情
// GET /products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), productID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, product)
}

// CreateProduct 商品录入（管理端）
// POST /admin/products
func (h *Handler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}

	id, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// ============================================================
// 订单相关接口
// ============================================================

// CreateOrderRequest 购买请求
type CreateOrderRequest struct {
	UserID    int64 `json:"user_id" binding:"required,min=1"`
	ProductID int64 `json:"product_id" binding:"required,min=1"`
	Quantity  int   `json:"quantity" binding:"omitempty,min=1,max=100"` // 缺省按 1 处理
}

// CreateOrder 购买商品
// POST /orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FailValidation(c, "参数错误: "+err.Error())
		return
	}

	orderID, err := h.orderService.Purchase(c.Request.Context(), &service.PurchaseRequest{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Created(c, gin.H{"order_id": orderID})
}

// ListOrders 订单列表，只允许查自己的
// GET /orders?user_id=
func (h *Handler) ListOrders(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.FailValidation(c, "user_id 参数错误")
		return
	}

	if userID != currentUserID(c) {
		response.Fail(c, errOrderAccessDenied)
		return
	}

	orders, err := h.orderService.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, orders)
}
