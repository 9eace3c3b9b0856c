// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package driver

import (
	"database/sql/driver"
	"io"

	"github.com/jackc/pgx/v5"
)

// Rows is an iterator over an executed query's results.
type Rows struct {
	rows  pgx.Rows
	names []string
}

func newRows(rows pgx.Rows) *Rows {
	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return &Rows{rows: rows, names: names}
}

// Columns returns the result's column names.
func (r *Rows) Columns() []string {
	return r.names
}

// Close closes the rows iterator.
func (r *Rows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

// Next populates dest with the next row's values, returning io.EOF once
// the result set is exhausted.
func (r *Rows) Next(dest []driver.Value) error {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	values, err := r.rows.Values()
	if err != nil {
		return err
	}
	for i, v := range values {
		dest[i] = v
	}
	return nil
}
