package mysql

import (
	"database/sql"
	"strings"

	domain "github.com/bryanwahyu/vetscan/internal/domain/analysis"
)

// nullIfEmpty stores blank optional references as NULL.
func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// offset turns a 1-based page into LIMIT/OFFSET values.
func offset(page, pageSize int) (limit, off int) {
	page, pageSize = domain.PageBounds(page, pageSize)
	return pageSize, (page - 1) * pageSize
}
