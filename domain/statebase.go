// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package domain

import (
	"context"
	"sync"

	"github.com/canonical/sqlair"
	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/database"
)

// StateBase defines a base struct for requesting a database. It caches the
// database and the prepared statements used against it.
type StateBase struct {
	getDB database.TxnRunnerFactory
	db    database.TxnRunner

	mu    sync.RWMutex
	stmts map[string]*sqlair.Statement
}

// NewStateBase returns a new StateBase.
func NewStateBase(getDB database.TxnRunnerFactory) *StateBase {
	return &StateBase{
		getDB: getDB,
		stmts: make(map[string]*sqlair.Statement),
	}
}

// DB returns the database for a given namespace.
func (st *StateBase) DB(ctx context.Context) (database.TxnRunner, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	st.mu.RLock()
	db := st.db
	st.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.db != nil {
		return st.db, nil
	}
	if st.getDB == nil {
		return nil, errors.New("nil getDB")
	}

	var err error
	if st.db, err = st.getDB(); err != nil {
		return nil, errors.Annotate(err, "invoking getDB")
	}
	return st.db, nil
}

// Prepare prepares a SQLair query. If the query has been prepared
// previously it is retrieved from the statement cache.
//
// Note that because the type samples are not considered when retrieving a
// query from the cache, it is an error to prepare two identical queries
// with different type samples.
func (st *StateBase) Prepare(query string, typeSamples ...any) (*sqlair.Statement, error) {
	st.mu.RLock()
	stmt, ok := st.stmts[query]
	st.mu.RUnlock()
	if ok {
		return stmt, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if stmt, ok := st.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := sqlair.Prepare(query, typeSamples...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	st.stmts[query] = stmt
	return stmt, nil
}
