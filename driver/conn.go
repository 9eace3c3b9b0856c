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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cypherql/cypherql"
)

// Conn is a connection to a database, bound to one pooled pgx connection.
type Conn struct {
	driver *Driver
	conn   *pgxpool.Conn
}

// Prepare translates query (Cypher source) to SQL and returns a statement
// ready to bind parameters and execute.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext is Prepare with a context, used by database/sql when the
// caller supplies one.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	res, err := cypherql.Translate(query, c.driver.options)
	if err != nil {
		return nil, err
	}
	c.driver.log.WithField("params", res.Params).Trace("prepared statement")
	return &Stmt{conn: c, sql: res.SQL, params: res.Params}, nil
}

// Close releases the pooled connection back to the pool.
func (c *Conn) Close() error {
	c.conn.Release()
	return nil
}

// Begin starts a transaction on the underlying pgx connection.
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background())
}

// BeginTx starts a transaction with ctx governing its lifetime.
func (c *Conn) BeginTx(ctx context.Context) (driver.Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txWrapper{ctx: ctx, tx: tx}, nil
}

type txWrapper struct {
	ctx context.Context
	tx  pgx.Tx
}

func (t *txWrapper) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txWrapper) Rollback() error { return t.tx.Rollback(t.ctx) }
