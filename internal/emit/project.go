package emit

import (
	"fmt"
	"strings"

	"github.com/cypherql/cypherql/ast"
)

// closeStage compiles everything accumulated since the last stage boundary
// (or the start of the query) into a named CTE, then resets the join graph
// so the next stage reads from it. This is how a WITH clause becomes a
// subquery boundary: aggregation, DISTINCT, and WHERE filtering on the
// aggregate's result (the Cypher equivalent of SQL's HAVING) all happen
// naturally once postCount is just a column of the new FROM relation.
func (b *builder) closeStage(w *ast.WithClause) error {
	sel, err := b.buildSelect(w.Items, w.Distinct, w.OrderBy, w.Skip, w.Limit)
	if err != nil {
		return err
	}

	b.stageSeq++
	name := fmt.Sprintf("stage_%d", b.stageSeq)
	b.ctes = append(b.ctes, fmt.Sprintf("%s AS (\n%s\n)", name, indent(sel)))

	// A bare entity variable (e.g. `WITH n`) was selected as a whole
	// composite row, so it stays reachable the same way on the other side
	// of the boundary: a parenthesized `stage_N.alias` column reference,
	// which PropertyAccess/LabelTest can reach into exactly like a plain
	// table alias. Anything else (aggregates, property extractions,
	// computed expressions) is just a scalar column.
	type carried struct {
		name      string
		composite bool
	}
	carriedItems := make([]carried, 0, len(w.Items))
	for _, item := range w.Items {
		_, isEntity := item.Expression.(*ast.Variable)
		carriedItems = append(carriedItems, carried{name: item.Alias, composite: isEntity})
	}

	b.resetStage()
	b.fromParts = append(b.fromParts, fmt.Sprintf("%s AS %s", name, name))
	for _, c := range carriedItems {
		if c.composite {
			b.aliasOf[c.name] = fmt.Sprintf("(%s.%s)", name, c.name)
		} else {
			b.aliasOf[c.name] = name + "." + c.name
		}
	}
	if w.Where != nil {
		where, err := b.compileExpr(w.Where)
		if err != nil {
			return err
		}
		b.whereParts = append(b.whereParts, where)
	}
	return nil
}

// buildSelect compiles the current join graph plus a projection list into
// one SELECT statement. GROUP BY is inferred: if any item is an aggregate,
// every non-aggregate item's compiled expression becomes a grouping key.
func (b *builder) buildSelect(items []ast.Projection, distinct bool, order []ast.OrderItem, skip, limit ast.Expression) (string, error) {
	selectCols := make([]string, 0, len(items))
	groupKeys := make([]string, 0, len(items))
	hasAggregate := false
	for _, item := range items {
		if containsAggregate(item.Expression) {
			hasAggregate = true
		}
	}
	for _, item := range items {
		colSQL, err := b.compileExpr(item.Expression)
		if err != nil {
			return "", err
		}
		selectCols = append(selectCols, fmt.Sprintf("%s AS %s", colSQL, item.Alias))
		if hasAggregate && !containsAggregate(item.Expression) {
			groupKeys = append(groupKeys, colSQL)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(selectCols, ", "))
	sb.WriteString("\nFROM ")
	sb.WriteString(strings.Join(b.fromParts, "\n"))

	if len(b.whereParts) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(b.whereParts, "\n  AND "))
	}
	if len(groupKeys) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(groupKeys, ", "))
	}
	if len(order) > 0 {
		parts := make([]string, len(order))
		for i, o := range order {
			colSQL, err := b.compileExpr(o.Expression)
			if err != nil {
				return "", err
			}
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			parts[i] = colSQL + " " + dir
		}
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if limit != nil {
		limSQL, err := b.compileExpr(limit)
		if err != nil {
			return "", err
		}
		sb.WriteString("\nLIMIT " + limSQL)
	}
	if skip != nil {
		skipSQL, err := b.compileExpr(skip)
		if err != nil {
			return "", err
		}
		sb.WriteString("\nOFFSET " + skipSQL)
	}
	return sb.String(), nil
}

func containsAggregate(e ast.Expression) bool {
	_, ok := e.(*ast.AggregateCall)
	return ok
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
