package postgres

import (
	"fmt"
	"strings"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// vectorToString converts a vector to pgvector's text format: "[0.1,0.2,...]".
func vectorToString(vector []float64) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// buildDeleteClause builds a WHERE clause from a delete filter,
// numbering placeholders from $1.
func buildDeleteClause(filter *vectorstore.DeleteFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, filter.UserID)
		argIndex++
	}

	if !filter.Before.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, filter.Before)
		argIndex++
	}

	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, id)
			argIndex++
		}
		conditions = append(conditions, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
