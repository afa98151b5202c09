package filter

import "tddebugger/pkg/domain"

// DefaultPageSize 默认每页条数
const DefaultPageSize = 100

// Page 分页结果，Index 从 0 开始
type Page struct {
	Items []domain.Entry
	Index int
	Size  int
	Pages int
	Total int
}

// HasPrev 是否有上一页
func (p Page) HasPrev() bool { return p.Index > 0 }

// HasNext 是否有下一页
func (p Page) HasNext() bool { return p.Index < p.Pages-1 }

// Paginate 分页，页码越界时取最近的有效页
func Paginate(entries []domain.Entry, index, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(entries)
	pages := (total + size - 1) / size
	if index >= pages {
		index = pages - 1
	}
	if index < 0 {
		index = 0
	}

	p := Page{Index: index, Size: size, Pages: pages, Total: total}
	start := index * size
	if start >= total {
		p.Items = []domain.Entry{}
		return p
	}
	end := min(start+size, total)
	p.Items = entries[start:end]
	return p
}
