package repository

import (
	"math"
	"strings"
	"time"
)

// Page is an offset/limit window over a listing.  Page numbers start at 1.
type Page struct {
	Page  int
	Limit int
}

// MaxLimit caps the page size a caller may request.
const MaxLimit = 100

// NewPage normalises raw page/limit values: page < 1 becomes 1, a missing
// limit becomes def and a limit above MaxLimit is clamped to it.  Page is
// capped so Offset cannot overflow; the capped window still lies past any
// real row count and yields an empty listing.
func NewPage(page, limit, def int) Page {
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = def
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if limit < 1 {
		limit = 1
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return Page{Page: page, Limit: limit}
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// TotalPages returns ceil(total / limit).
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Paged is the envelope every paginated listing is returned in.  Data is
// never nil so an empty page encodes as [].
type Paged[T any] struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Data       []T `json:"data"`
}

// NewPaged wraps rows fetched for p out of total matching rows.
func NewPaged[T any](p Page, total int, rows []T) Paged[T] {
	if rows == nil {
		rows = []T{}
	}
	return Paged[T]{Page: p.Page, Limit: p.Limit, TotalItems: total, TotalPages: p.TotalPages(total), Data: rows}
}

// SortSpec is a server-side allow-list of sortable columns.  Columns maps the
// name a client may send to the SQL expression it orders by.
type SortSpec struct {
	Columns map[string]string
	Default string
}

// ResolveSort builds an ORDER BY clause from untrusted column/order input.
// Unknown columns fall back to the allow-list default; order is ASC unless the
// caller asked for desc.
func ResolveSort(allowed SortSpec, column, order string) string {
	expr, ok := allowed.Columns[strings.ToLower(strings.TrimSpace(column))]
	if !ok {
		expr = allowed.Columns[allowed.Default]
	}
	dir := "ASC"
	if strings.EqualFold(strings.TrimSpace(order), "desc") {
		dir = "DESC"
	}
	return "ORDER BY " + expr + " " + dir
}

// whereClause joins conditions with AND, defaulting to a tautology.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return "1=1"
	}
	return strings.Join(conds, " AND ")
}

// likeArg lower-cases s and wraps it for a substring LIKE match.
func likeArg(s string) string { return "%" + strings.ToLower(s) + "%" }

// now is the timestamp written by inserts and transitions.  Second
// precision matches MySQL DATETIME.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }
