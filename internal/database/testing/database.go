// Copyright 2022 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"bytes"
	"database/sql"
	"fmt"
	"text/tabwriter"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

// DumpTable writes the rows of the given tables to the test log. It is only
// meant to help debugging failing tests.
func DumpTable(c *gc.C, db *sql.DB, table string, extraTables ...string) {
	for _, t := range append([]string{table}, extraTables...) {
		c.Logf("table %s:\n%s", t, dumpRows(c, db, t))
	}
}

func dumpRows(c *gc.C, db *sql.DB, table string) string {
	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %q", table))
	c.Assert(err, jc.ErrorIsNil)
	defer rows.Close()

	cols, err := rows.Columns()
	c.Assert(err, jc.ErrorIsNil)

	buffer := new(bytes.Buffer)
	writer := tabwriter.NewWriter(buffer, 0, 8, 2, ' ', 0)
	for _, col := range cols {
		fmt.Fprintf(writer, "%s\t", col)
	}
	fmt.Fprintln(writer)

	vals := make([]any, len(cols))
	for i := range vals {
		vals[i] = new(any)
	}
	for rows.Next() {
		c.Assert(rows.Scan(vals...), jc.ErrorIsNil)
		for _, val := range vals {
			fmt.Fprintf(writer, "%v\t", *val.(*any))
		}
		fmt.Fprintln(writer)
	}
	c.Assert(rows.Err(), jc.ErrorIsNil)
	c.Assert(writer.Flush(), jc.ErrorIsNil)
	return buffer.String()
}
