package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump flattens an error chain into loggable fields. Storage fields are
// filled from whichever driver produced the failure: pgx, lib/pq (goose
// migrations) or SQLite in local runs and tests.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	StoreDriver     string `json:"store_driver,omitempty"`
	StoreCode       string `json:"store_code,omitempty"`
	StoreConstraint string `json:"store_constraint,omitempty"`
	StoreTable      string `json:"store_table,omitempty"`
	StoreDetail     string `json:"store_detail,omitempty"`
}

// HasStoreError reports whether a database driver error was found in the chain.
func (d ErrorDump) HasStoreError() bool {
	return d.StoreDriver != ""
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	var liteErr sqlite3.Error
	switch {
	case errors.As(err, &pgErr):
		d.StoreDriver = "pgx"
		d.StoreCode = pgErr.Code
		d.StoreConstraint = pgErr.ConstraintName
		d.StoreTable = pgErr.TableName
		d.StoreDetail = firstNonEmpty(pgErr.Detail, pgErr.Message)
	case errors.As(err, &pqErr):
		d.StoreDriver = "pq"
		d.StoreCode = string(pqErr.Code)
		d.StoreConstraint = pqErr.Constraint
		d.StoreTable = pqErr.Table
		d.StoreDetail = firstNonEmpty(pqErr.Detail, pqErr.Message)
	case errors.As(err, &liteErr):
		d.StoreDriver = "sqlite"
		d.StoreCode = fmt.Sprintf("%d", int(liteErr.ExtendedCode))
		d.StoreDetail = liteErr.Error()
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
