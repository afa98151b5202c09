package filter

// Preset 已保存的筛选状态
type Preset struct {
	Text     string `json:"text"`
	Status   string `json:"status"`
	Database string `json:"database"`
	Regex    bool   `json:"regex"`
}

// Options 转换为筛选条件
func (p Preset) Options() Options {
	return Options{StatusClass: p.Status, Database: p.Database, UseRegex: p.Regex}
}
