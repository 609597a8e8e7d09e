package remote

import (
	"fmt"
	"strconv"
)

// RowToHash converts a Row to the Redis hash stored at RowKey. Every column is
// written so an HSET fully replaces the previous version of the row.
func RowToHash(r Row) map[string]interface{} {
	return map[string]interface{}{
		"organization":      r.Organization,
		"period":            r.Period,
		"department_tag":    r.DepartmentTag,
		"area_id":           r.AreaID,
		"area_name":         r.AreaName,
		"category_id":       r.CategoryID,
		"rating":            r.Rating,
		"worked_well":       r.WorkedWell,
		"needs_improvement": r.NeedsImprovement,
		"notes":             r.Notes,
		"updated_at":        r.UpdatedAt,
	}
}

// HashToRow converts a Redis hash back to a Row.
// Numeric columns that fail to parse are an error: they are only ever written by RowToHash.
func HashToRow(hash map[string]string) (Row, error) {
	rating := 0
	if v := hash["rating"]; v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Row{}, fmt.Errorf("invalid rating field: %w", err)
		}
		rating = parsed
	}

	var updatedAt int64
	if v := hash["updated_at"]; v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Row{}, fmt.Errorf("invalid updated_at field: %w", err)
		}
		updatedAt = parsed
	}

	return Row{
		Organization:     hash["organization"],
		Period:           hash["period"],
		DepartmentTag:    hash["department_tag"],
		AreaID:           hash["area_id"],
		AreaName:         hash["area_name"],
		CategoryID:       hash["category_id"],
		Rating:           rating,
		WorkedWell:       hash["worked_well"],
		NeedsImprovement: hash["needs_improvement"],
		Notes:            hash["notes"],
		UpdatedAt:        updatedAt,
	}, nil
}
