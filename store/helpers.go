package store

import (
	"database/sql"
	"fmt"

	"gamevote-backend/models"
)

// timeFormat is the display format for timestamps in admin table rows.
const timeFormat = "2006-01-02 15:04:05"

func entryTable(kind string) (string, error) {
	switch kind {
	case models.KindGame:
		return "games", nil
	case models.KindPublisher:
		return "publishers", nil
	default:
		return "", fmt.Errorf("unknown reference entry kind %q", kind)
	}
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func tableColumns(table string) []string {
	switch table {
	case "categories":
		return []string{"id", "name", "name_ar", "description", "display_order", "is_ranked", "kind"}
	case "votes":
		return []string{"id", "voter_name", "category", "rank", "selection", "points", "timestamp"}
	default: // games, publishers
		return []string{"id", "name", "created_at"}
	}
}
