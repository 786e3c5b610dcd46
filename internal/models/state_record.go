package models

import (
	"time"
)

// StateRowID 状态行的固定主键（整个系统只有这一行）
const StateRowID = 1

// StateRecord 状态文档的持久化模型
// 文档整体序列化为JSON存入Data列，单行表
type StateRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Data      string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (StateRecord) TableName() string {
	return "game_state"
}
