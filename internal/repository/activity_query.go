package repository

import (
	"fmt"
	"strings"

	"github.com/rpattn/fleetline/internal/domain"
)

const activityColumns = "id, work_order_id, activity_type, title, description, user_id, user_name, user_avatar, metadata, created_at"

// escapeLikePattern escapes LIKE wildcards in caller-supplied search text so a
// query for "test%_search" matches the literal string, not a pattern.
func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildActivityListQuery renders a filter set into store-level predicates:
// date range, type-in-set, technician-in-set, escaped substring search on
// title and description, newest-first ordering and limit/offset pagination.
// Kept pure so the predicate shape is testable without a live database.
func buildActivityListQuery(workOrderID string, filters *domain.TimelineFilters) (string, []any) {
	var sb strings.Builder
	args := []any{workOrderID}

	sb.WriteString("SELECT ")
	sb.WriteString(activityColumns)
	sb.WriteString(" FROM activities WHERE work_order_id = $1")

	if filters != nil {
		if dr := filters.DateRange; dr != nil {
			args = append(args, dr.Start)
			fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
			args = append(args, dr.End)
			fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
		}
		if len(filters.ActivityTypes) > 0 {
			types := make([]string, len(filters.ActivityTypes))
			for i, t := range filters.ActivityTypes {
				types[i] = string(t)
			}
			args = append(args, types)
			fmt.Fprintf(&sb, " AND activity_type = ANY($%d)", len(args))
		}
		if len(filters.TechnicianIDs) > 0 {
			args = append(args, filters.TechnicianIDs)
			fmt.Fprintf(&sb, " AND user_id = ANY($%d)", len(args))
		}
		if q := strings.TrimSpace(filters.SearchQuery); q != "" {
			args = append(args, "%"+escapeLikePattern(q)+"%")
			fmt.Fprintf(&sb, ` AND (title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, len(args), len(args))
		}
	}

	sb.WriteString(" ORDER BY created_at DESC")

	args = append(args, filters.EffectiveLimit())
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, filters.EffectiveOffset())
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return sb.String(), args
}
