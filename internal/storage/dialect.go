package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour used by the stores.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
	MySQL
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	}
	return SQLite, fmt.Errorf("unsupported sql driver %q", driver)
}

// Rebind rewrites ? placeholders into $n for postgres. Queries never
// contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d Dialect) schema() []string {
	id, text, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "DATETIME"
	switch d {
	case Postgres:
		id, text, ts = "BIGSERIAL PRIMARY KEY", "TEXT", "TIMESTAMPTZ"
	case MySQL:
		id, text, ts = "BIGINT AUTO_INCREMENT PRIMARY KEY", "MEDIUMTEXT", "DATETIME(6)"
	}
	ifNotExists := "IF NOT EXISTS "
	if d == MySQL {
		ifNotExists = ""
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS blocks (
			id ` + id + `,
			page_id BIGINT NOT NULL,
			type VARCHAR(16) NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			title VARCHAR(1024) NOT NULL,
			content ` + text + ` NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id ` + id + `,
			block_id BIGINT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
			name VARCHAR(512) NOT NULL,
			url VARCHAR(1024) NOT NULL,
			type VARCHAR(16) NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS image_dimensions (
			id ` + id + `,
			block_id BIGINT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
			attachment_id BIGINT NULL,
			image_url VARCHAR(768) NOT NULL,
			image_name VARCHAR(512) NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			original_width INTEGER NOT NULL,
			original_height INTEGER NOT NULL,
			position_x INTEGER NOT NULL,
			position_y INTEGER NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX ` + ifNotExists + `idx_blocks_page ON blocks(page_id)`,
		`CREATE INDEX ` + ifNotExists + `idx_attachments_block ON attachments(block_id)`,
		`CREATE UNIQUE INDEX ` + ifNotExists + `idx_image_dimensions_block_url ON image_dimensions(block_id, image_url)`,
	}
}
