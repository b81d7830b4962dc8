package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ============================================================
// 偏移分页
// ============================================================

// OffsetQuery 偏移分页入参，page 从 1 开始，limit 限制在 1..100
type OffsetQuery struct {
	Page  int `form:"page,default=1" binding:"omitempty,min=1"`
	Limit int `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
}

// OffsetMeta 偏移分页元数据
type OffsetMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Normalize 补默认值并夹紧上限
func (q *OffsetQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
}

// Offset 转换为 SQL OFFSET
func (q *OffsetQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// NewOffsetMeta 计算分页元数据
func NewOffsetMeta(page, limit int, total int64) OffsetMeta {
	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return OffsetMeta{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

// ============================================================
// 游标分页
// ============================================================
//
// 游标是边界记录 ID 的 base64 编码（"id:123"），对客户端不透明。
// direction=next 表示取游标之后（更旧）的记录，prev 反之。
// ============================================================

const (
	DirectionNext = "next"
	DirectionPrev = "prev"
)

// CursorQuery 游标分页入参
type CursorQuery struct {
	Cursor    string `form:"cursor"`
	Limit     int    `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
	Direction string `form:"direction,default=next" binding:"omitempty,oneof=next prev"`
}

// CursorMeta 游标分页元数据
type CursorMeta struct {
	Limit          int    `json:"limit"`
	HasNext        bool   `json:"has_next"`
	HasPrevious    bool   `json:"has_previous"`
	NextCursor     string `json:"next_cursor,omitempty"`
	PreviousCursor string `json:"previous_cursor,omitempty"`
}

// Normalize 补默认值并夹紧上限
func (q *CursorQuery) Normalize() {
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Direction == "" {
		q.Direction = DirectionNext
	}
}

// EncodeCursor 把边界记录 ID 编码为游标
func EncodeCursor(id int64) string {
	return base64.URLEncoding.EncodeToString([]byte(fmt.Sprintf("id:%d", id)))
}

// DecodeCursor 解析游标，非法游标返回错误
func DecodeCursor(cursor string) (int64, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("非法游标: %w", err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, "id:") {
		return 0, fmt.Errorf("非法游标: %q", s)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "id:"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("非法游标: %w", err)
	}
	return id, nil
}
