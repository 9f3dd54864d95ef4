package availability

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GRID - year -> 12 monthly cells, January first
// =============================================================================

// Grid maps a calendar year to exactly 12 cells. An invalid (null) cell
// means the staff member is not under contract that month.
type Grid map[int][]decimal.NullDecimal

// NewGrid creates null rows for every year in [fromYear, toYear].
func NewGrid(fromYear, toYear int) Grid {
	g := make(Grid, toYear-fromYear+1)
	for y := fromYear; y <= toYear; y++ {
		g[y] = make([]decimal.NullDecimal, 12)
	}
	return g
}

// Years returns the grid's years in ascending order.
func (g Grid) Years() []int {
	years := make([]int, 0, len(g))
	for y := range g {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Cell returns the cell for year and 0-based month index. Years outside the
// grid read as null.
func (g Grid) Cell(year, month int) decimal.NullDecimal {
	row, ok := g[year]
	if !ok || month < 0 || month >= len(row) {
		return decimal.NullDecimal{}
	}
	return row[month]
}

// Set writes a value into an existing year. Returns false if the year is
// not part of the grid.
func (g Grid) Set(year, month int, v decimal.Decimal) bool {
	row, ok := g[year]
	if !ok {
		return false
	}
	row[month] = decimal.NullDecimal{Decimal: v, Valid: true}
	return true
}

// Sub subtracts v from an in-contract cell. Null cells and unknown years
// are left alone.
func (g Grid) Sub(year, month int, v decimal.Decimal) bool {
	row, ok := g[year]
	if !ok || !row[month].Valid {
		return false
	}
	row[month].Decimal = row[month].Decimal.Sub(v)
	return true
}

// Clone deep-copies the grid.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for y, row := range g {
		cp := make([]decimal.NullDecimal, len(row))
		copy(cp, row)
		out[y] = cp
	}
	return out
}
