package model

import (
	"time"
)

// Setting 用户偏好表
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`  // 偏好键
	Value     string    `gorm:"type:text" json:"value"` // 偏好值（JSON 或纯文本）
	UpdatedAt time.Time `json:"updatedAt"`              // 更新时间
}

// 预定义的偏好 Key
const (
	SettingKeyHosts            = "tdHosts"          // 主机白名单，逗号分隔
	SettingKeyShowNonTD        = "showNonTD"        // 是否显示非 TD 请求
	SettingKeyShowPreflight    = "showPreflight"    // 是否显示预检请求
	SettingKeyCustomFields     = "customFields"     // 字段配置 JSON
	SettingKeyCustomExtractors = "customExtractors" // 路径提取器 JSON
	SettingKeyRedactionRules   = "redactionRules"   // 自定义脱敏规则，每行一条
	SettingKeyFilterPresets    = "filterPresets"    // 过滤预设 JSON
	SettingKeyFilter           = "tdFilter"         // 上次的过滤条件
	SettingKeyRedact           = "tdRedact"         // 是否启用脱敏
)

// EntryRecord 已捕获条目表
type EntryRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	SessionID           string    `gorm:"index" json:"sessionId"`
	Idx                 int64     `json:"idx"`
	Timestamp           int64     `gorm:"index" json:"timestamp"` // 捕获时间（毫秒）
	Method              string    `json:"method"`
	URL                 string    `gorm:"type:text" json:"url"`
	Status              int       `json:"status"`
	ContentType         string    `json:"contentType"`
	Database            string    `gorm:"column:db_name;index" json:"database"`
	Preflight           bool      `json:"preflight"`
	ParsedJSON          string    `gorm:"type:text" json:"parsedJson"`
	RequestHeadersJSON  string    `gorm:"type:text" json:"requestHeadersJson"`
	ResponseHeadersJSON string    `gorm:"type:text" json:"responseHeadersJson"`
	CreatedAt           time.Time `json:"createdAt"`
}

// All 返回需要迁移的全部模型
func All() []any {
	return []any{&Setting{}, &EntryRecord{}}
}
