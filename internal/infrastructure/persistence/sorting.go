package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns is the allow-list of columns a list query may order by.
// Anything else falls back to the default column, so caller input never
// reaches the SQL text.
type sortColumns struct {
	allowed  map[string]struct{}
	fallback string
}

func newSortColumns(fallback string, columns ...string) sortColumns {
	allowed := make(map[string]struct{}, len(columns)+1)
	allowed[fallback] = struct{}{}
	for _, c := range columns {
		allowed[c] = struct{}{}
	}
	return sortColumns{allowed: allowed, fallback: fallback}
}

// orderBy returns the ORDER BY column for a requested field and direction.
// Direction defaults to descending unless dir is "asc" in any case.
func (s sortColumns) orderBy(field, dir string) clause.OrderByColumn {
	column := strings.TrimSpace(field)
	if _, ok := s.allowed[column]; !ok {
		column = s.fallback
	}
	return clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: !isAscending(dir)}
}

func isAscending(dir string) bool {
	return strings.EqualFold(strings.TrimSpace(dir), "asc")
}

var productionOrderSort = newSortColumns("created_at",
	"order_no", "planned_date", "target_item_code", "planned_qty", "status", "updated_at")
