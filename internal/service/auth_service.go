package service

import (
	"context"
	"fmt"
	"time"

	"pointshop/internal/config"
	"pointshop/internal/model"
	"pointshop/internal/repository"
	"pointshop/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "邮箱或密码不正确")
	ErrTokenRequired      = apperr.New(apperr.KindUnauthorized, "缺少访问令牌")
	ErrTokenInvalid       = apperr.New(apperr.KindUnauthorized, "无效的访问令牌")
)

type AuthService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: repository.NewUserRepository(db),
		cfg:      cfg,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=64"`
	Name     string `json:"name" binding:"required,min=1,max=64"`
}

// UserInfo 对外的用户摘要，不含密码
type UserInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	User        UserInfo `json:"user"`
}

// Register 注册新用户，邮箱全局唯一
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*UserInfo, error) {
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	return &UserInfo{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// Login 校验凭证并签发访问令牌
// 用户不存在和密码错误返回同一个错误，不泄露邮箱是否已注册
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(s.cfg.JWT.ExpireMinutes) * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发令牌失败: %w", err)
	}

	return &LoginResponse{
		AccessToken: token,
		User:        UserInfo{ID: user.ID, Email: user.Email, Name: user.Name},
	}, nil
}

// ParseToken 验证令牌并取出用户身份
func (s *AuthService) ParseToken(tokenString string) (int64, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非预期的签名算法: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrTokenInvalid
	}

	sub, ok := claims["sub"].(float64) // JSON 数字解析为 float64
	if !ok {
		return 0, "", ErrTokenInvalid
	}
	email, _ := claims["email"].(string)

	return int64(sub), email, nil
}
