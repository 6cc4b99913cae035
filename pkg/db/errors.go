package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Violation is the kind of integrity constraint a statement broke.
type Violation string

const (
	ViolationNone       Violation = ""
	ViolationUnique     Violation = "unique"
	ViolationForeignKey Violation = "foreign_key"
	ViolationCheck      Violation = "check"
	ViolationNotNull    Violation = "not_null"
)

var violationBySQLState = map[string]Violation{
	"23505": ViolationUnique,
	"23503": ViolationForeignKey,
	"23514": ViolationCheck,
	"23502": ViolationNotNull,
}

var violationBySQLiteText = map[string]Violation{
	"UNIQUE constraint failed":      ViolationUnique,
	"FOREIGN KEY constraint failed": ViolationForeignKey,
	"CHECK constraint failed":       ViolationCheck,
	"NOT NULL constraint failed":    ViolationNotNull,
}

// Fault is what the database reported about a failed statement.
type Fault struct {
	Violation  Violation
	SQLState   string
	Constraint string
	Table      string
	Column     string
	Detail     string
}

// FaultOf extracts the driver error from err. Postgres errors come from pgx or lib/pq;
// sqlite only reports through its message text. It returns nil when err carries no
// recognisable database error.
func FaultOf(err error) *Fault {
	if err == nil {
		return nil
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &Fault{
			Violation:  violationBySQLState[pgxErr.Code],
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &Fault{
			Violation:  violationBySQLState[string(pqErr.Code)],
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
		}
	}
	msg := err.Error()
	for text, kind := range violationBySQLiteText {
		if idx := strings.Index(msg, text); idx >= 0 {
			// "UNIQUE constraint failed: users.username"
			f := &Fault{Violation: kind, Detail: msg}
			if rest := strings.TrimPrefix(msg[idx+len(text):], ": "); rest != "" {
				f.Table, f.Column, _ = strings.Cut(strings.Split(rest, ",")[0], ".")
			}
			return f
		}
	}
	if strings.Contains(msg, "duplicate key value") {
		return &Fault{Violation: ViolationUnique, Detail: msg}
	}
	return nil
}

// LogFields flattens the fault for structured logs.
func (f *Fault) LogFields() map[string]any {
	if f == nil {
		return nil
	}
	fields := map[string]any{"db_violation": string(f.Violation)}
	for key, value := range map[string]string{
		"db_sqlstate":   f.SQLState,
		"db_constraint": f.Constraint,
		"db_table":      f.Table,
		"db_column":     f.Column,
		"db_detail":     f.Detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

// IsUniqueViolation reports whether err is a unique constraint failure. A non-empty
// constraint narrows the match to that constraint name, or to the table.column pair
// sqlite reports.
func IsUniqueViolation(err error, constraint string) bool {
	f := FaultOf(err)
	if f == nil || f.Violation != ViolationUnique {
		return false
	}
	if constraint == "" {
		return true
	}
	return f.Constraint == constraint || f.Table+"."+f.Column == constraint || strings.Contains(err.Error(), constraint)
}
