// Package history is the local run ledger: one DuckDB row per finished
// audit run, queried by the report command and the web API.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const runHistorySchema = `
	CREATE TABLE IF NOT EXISTS run_history (
		run_id VARCHAR NOT NULL PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		sites_scanned INTEGER NOT NULL,
		pairs_scanned INTEGER NOT NULL,
		pairs_failed INTEGER NOT NULL,
		record_count INTEGER NOT NULL,
		stale_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		log_only BOOLEAN NOT NULL,
		status VARCHAR NOT NULL
	);
`

var bootQueries = []string{
	runHistorySchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=2", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
