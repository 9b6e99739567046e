// Package paginator splits ordered listings into fixed-size pages.
package paginator

import "strconv"

// PerPage is the number of items shown on one listing page.
const PerPage = 10

// Page describes one window of a listing.
type Page struct {
	Number   int
	PerPage  int
	NumPages int
	Total    int64
}

// New clamps requested into [1, NumPages]. An empty listing still has one page.
func New(total int64, requested, perPage int) Page {
	if perPage <= 0 {
		perPage = PerPage
	}
	if total < 0 {
		total = 0
	}
	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{Number: number, PerPage: perPage, NumPages: numPages, Total: total}
}

// ParsePage reads a ?page= value. Anything that is not a positive integer is page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit is the page size, for use with LIMIT/OFFSET queries.
func (p Page) Limit() int {
	return p.PerPage
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p Page) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

func (p Page) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

// Range lists the page numbers 1..NumPages for navigation links.
func (p Page) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Slice returns the window of items that page number requested covers.
func Slice[T any](items []T, requested, perPage int) ([]T, Page) {
	page := New(int64(len(items)), requested, perPage)
	start := page.Offset()
	end := start + page.PerPage
	if end > len(items) {
		end = len(items)
	}
	if start > end {
		start = end
	}
	return items[start:end], page
}
