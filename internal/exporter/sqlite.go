package exporter

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// GenerationTable is the SQLite table mirroring all.csv
const GenerationTable = "generation"

var generationColumnTypes = map[string]string{
	domain.ColMonitoredCapacity: "REAL",
	domain.ColTodayProgram:      "REAL",
	domain.ColTodayActual:       "REAL",
	domain.ColYTDProgram:        "REAL",
	domain.ColYTDActual:         "REAL",
	domain.ColCoalStock:         "REAL",
	domain.ColCapacityOutage:    "REAL",
}

// SQLiteMirror appends denormalized rows to a SQLite database for ad-hoc
// queries. Numeric measures are stored as REAL when they parse and NULL
// otherwise.
type SQLiteMirror struct {
	db *sql.DB
}

// OpenSQLiteMirror opens or creates the database at path and its table
func OpenSQLiteMirror(path string) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open sqlite database", err)
	}

	var defs []string
	for _, c := range domain.Columns() {
		t := generationColumnTypes[c]
		if t == "" {
			t = "TEXT"
		}
		defs = append(defs, fmt.Sprintf("%q %s", c, t))
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, GenerationTable, strings.Join(defs, ",")),
		`CREATE INDEX IF NOT EXISTS idx_generation_date ON generation("Date")`,
		`CREATE INDEX IF NOT EXISTS idx_generation_region ON generation("Region")`,
		`CREATE INDEX IF NOT EXISTS idx_generation_state ON generation("State")`,
		`CREATE INDEX IF NOT EXISTS idx_generation_row_type ON generation("Row Type")`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, apperrors.NewStorageError("failed to prepare sqlite schema", err)
		}
	}
	return &SQLiteMirror{db: db}, nil
}

// Insert stores rows in one transaction, replacing any rows already stored
// for their report dates, so a batch written twice is stored once.
func (m *SQLiteMirror) Insert(rows []domain.DenormalizedRow) error {
	if len(rows) == 0 {
		return nil
	}

	cols := domain.Columns()
	qCols := make([]string, len(cols))
	for i, c := range cols {
		qCols[i] = fmt.Sprintf("%q", c)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")

	tx, err := m.db.Begin()
	if err != nil {
		return apperrors.NewStorageError("failed to begin sqlite transaction", err)
	}
	dates := make(map[string]bool)
	for _, r := range rows {
		if !dates[r.Date] {
			dates[r.Date] = true
			if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %q WHERE "Date" = ?`, GenerationTable), r.Date); err != nil {
				tx.Rollback()
				return apperrors.NewStorageError("failed to clear report date", err)
			}
		}
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, GenerationTable, strings.Join(qCols, ","), ph))
	if err != nil {
		tx.Rollback()
		return apperrors.NewStorageError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		rec := r.Record()
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = sqliteValue(c, rec[i])
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return apperrors.NewStorageError("failed to insert row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("failed to commit sqlite transaction", err)
	}
	return nil
}

// Count returns the number of mirrored rows
func (m *SQLiteMirror) Count() (int, error) {
	var n int
	err := m.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %q`, GenerationTable)).Scan(&n)
	return n, err
}

// Close closes the database
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}

func sqliteValue(column, v string) any {
	if v == "" {
		return nil
	}
	if generationColumnTypes[column] == "REAL" {
		if f, ok := domain.Text(v).Float(); ok {
			return f
		}
		return nil
	}
	return v
}
