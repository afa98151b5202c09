package config

// DefaultSettings 定义用户偏好的默认值
type DefaultSettings struct {
	Hosts         []string
	ShowNonTD     bool
	ShowPreflight bool
	Redact        bool
	PageSize      int
}

// GetDefaultSettings 返回默认设置
func GetDefaultSettings() DefaultSettings {
	return DefaultSettings{
		Hosts:         []string{"in.treasuredata.com"},
		ShowNonTD:     false,
		ShowPreflight: false,
		Redact:        false,
		PageSize:      100,
	}
}
