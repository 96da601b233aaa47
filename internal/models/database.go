package models

import (
	"time"
)

// BaseModel 公共字段
// 订阅行按购买链路覆盖更新，事件日志只追加，因此不使用软删除
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
