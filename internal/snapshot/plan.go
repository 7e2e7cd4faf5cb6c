package snapshot

import "strings"

// queryPlan describes one streaming read of a producer table. Every
// extraction query is built here so column order, parameterization, and
// row ordering stay deterministic.
type queryPlan struct {
	table    string
	columns  []string
	orderCol string
	rowidTie bool // stabilize ordering when orderCol can repeat
	boundCol string
	boundVal any
}

// SQL assembles the parameterized query. Identifiers come from schema
// introspection and are quoted; values are always bound, never interpolated.
func (p queryPlan) SQL() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, col := range p.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(quoteIdent(col))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(p.table))

	var params []any
	if p.boundCol != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(quoteIdent(p.boundCol))
		sb.WriteString(" >= ?")
		params = append(params, p.boundVal)
	}

	sb.WriteString(" ORDER BY ")
	sb.WriteString(quoteIdent(p.orderCol))
	sb.WriteString(" ASC")
	if p.rowidTie {
		sb.WriteString(", rowid ASC")
	}
	return sb.String(), params
}

// textual reports whether a declared column type stores ISO text, which is
// the only case where a date lower bound can be pushed into SQL; numeric
// epochs are filtered after decoding because their unit is per-row.
func textual(declType string) bool {
	t := strings.ToUpper(declType)
	return strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT") || strings.Contains(t, "CLOB")
}
