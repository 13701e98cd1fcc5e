package sqlite

import (
	"strings"

	"github.com/vdemy/supportmem-go/pkg/vectorstore"
)

// buildWhereClause builds a WHERE clause for user scoping.
func buildWhereClause(userID string) (string, []interface{}) {
	if userID == "" {
		return "", nil
	}
	return "WHERE user_id = ?", []interface{}{userID}
}

// buildDeleteClause builds a WHERE clause from a delete filter.
func buildDeleteClause(filter *vectorstore.DeleteFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}

	if !filter.Before.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.Before)
	}

	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		conditions = append(conditions, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
