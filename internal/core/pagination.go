package core

// PageSizes are the page sizes offered by the result table.
var PageSizes = []int{5, 10, 20, 50, 100}

// DefaultPageSize is used when no valid size is requested.
const DefaultPageSize = 10

// Page describes one page of the result table.
type Page struct {
	Number     int `json:"page"`
	Size       int `json:"size"`
	TotalRows  int `json:"total_rows"`
	TotalPages int `json:"total_pages"`
}

// ValidPageSize reports whether size is one of PageSizes.
func ValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Paginate computes the page for total rows. Sizes outside PageSizes fall
// back to DefaultPageSize and the page number is clamped to
// [1, TotalPages]. An empty set still has one (empty) page.
func Paginate(total, page, size int) Page {
	if !ValidPageSize(size) {
		size = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}

	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	return Page{Number: page, Size: size, TotalRows: total, TotalPages: pages}
}

// Bounds returns the half-open row range [start, end) shown on this page.
func (p Page) Bounds() (start, end int) {
	start = (p.Number - 1) * p.Size
	end = start + p.Size
	if start > p.TotalRows {
		start = p.TotalRows
	}
	if end > p.TotalRows {
		end = p.TotalRows
	}
	return start, end
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Offset is the 1-based row number of the first row on the page.
func (p Page) Offset() int {
	start, _ := p.Bounds()
	return start + 1
}

// Slice returns the rows of p.
func (p Page) Slice(rows []ResultRow) []ResultRow {
	start, end := p.Bounds()
	if end > len(rows) {
		end = len(rows)
	}
	if start > end {
		start = end
	}
	return rows[start:end]
}
