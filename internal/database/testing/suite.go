// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	coredatabase "github.com/canonical/pinmanager/core/database"
	"github.com/canonical/pinmanager/internal/database"
	"github.com/canonical/pinmanager/internal/database/txn"
)

// SqliteSuite provides every test with a fresh SQLite database stored in
// the test's temporary directory.
type SqliteSuite struct {
	testing.IsolationSuite

	// Verbose dumps extra information while applying schema changes.
	Verbose bool

	db     *sql.DB
	runner coredatabase.TxnRunner
}

// SetUpTest opens the database for the test.
func (s *SqliteSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)

	db, err := database.Open(context.Background(), database.Config{
		Path:         filepath.Join(c.MkDir(), "pins.db"),
		BusyTimeout:  10 * time.Second,
		MaxOpenConns: 20,
	})
	c.Assert(err, jc.ErrorIsNil)
	s.db = db
	s.runner = database.NewTxnRunner(db, txn.WithDelay(time.Millisecond, 50*time.Millisecond))
}

// TearDownTest closes the database.
func (s *SqliteSuite) TearDownTest(c *gc.C) {
	if s.db != nil {
		c.Check(s.db.Close(), jc.ErrorIsNil)
		s.db = nil
	}
	s.IsolationSuite.TearDownTest(c)
}

// DB returns the plain database.
func (s *SqliteSuite) DB() *sql.DB {
	return s.db
}

// TxnRunner returns a transaction runner over the database.
func (s *SqliteSuite) TxnRunner() coredatabase.TxnRunner {
	return s.runner
}

// TxnRunnerFactory returns a factory for the transaction runner.
func (s *SqliteSuite) TxnRunnerFactory() coredatabase.TxnRunnerFactory {
	return database.TxnRunnerFactory(s.runner)
}

// ApplyDDL applies the schema changes to the database.
func (s *SqliteSuite) ApplyDDL(c *gc.C, deltas []coredatabase.Delta) {
	err := database.ApplyDDL(context.Background(), s.runner, deltas, nil)
	c.Assert(err, jc.ErrorIsNil)
	if s.Verbose {
		DumpTable(c, s.db, "schema_patch")
	}
}
