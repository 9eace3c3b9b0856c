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
	"context"
	"database/sql/driver"
)

// Stmt is a prepared statement: SQL compiled once from a Cypher source by
// Conn.Prepare, re-bindable and re-executable any number of times.
type Stmt struct {
	conn   *Conn
	sql    string
	params []string
}

// Close does nothing; the compiled SQL needs no server-side resource.
func (s *Stmt) Close() error {
	return nil
}

// NumInput reports how many $N placeholders the translated statement has.
func (s *Stmt) NumInput() int {
	return len(s.params)
}

// Exec executes a query that doesn't return rows.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.exec(context.Background(), valuesToArgs(args))
}

// Query executes a query that returns rows.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.query(context.Background(), valuesToArgs(args))
}

// ExecContext is Exec with a context.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.exec(ctx, namedValuesToArgs(args))
}

// QueryContext is Query with a context.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.query(ctx, namedValuesToArgs(args))
}

func (s *Stmt) exec(ctx context.Context, args []interface{}) (driver.Result, error) {
	tag, err := s.conn.conn.Exec(ctx, s.sql, args...)
	if err != nil {
		return nil, err
	}
	return &Result{rows: tag.RowsAffected()}, nil
}

func (s *Stmt) query(ctx context.Context, args []interface{}) (driver.Rows, error) {
	rows, err := s.conn.conn.Query(ctx, s.sql, args...)
	if err != nil {
		return nil, err
	}
	return newRows(rows), nil
}

func valuesToArgs(vs []driver.Value) []interface{} {
	args := make([]interface{}, len(vs))
	for i, v := range vs {
		args[i] = v
	}
	return args
}

func namedValuesToArgs(vs []driver.NamedValue) []interface{} {
	args := make([]interface{}, len(vs))
	for _, v := range vs {
		args[v.Ordinal-1] = v.Value
	}
	return args
}
