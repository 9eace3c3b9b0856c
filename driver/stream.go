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

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cypherql/cypherql"
)

// Stream is the optional async execute() façade of spec.md §5/§6.3: it
// translates source once and streams the resulting rows directly from a
// pgx pool, bypassing database/sql for callers that want pgx.Rows (and
// its zero-copy scanning) instead of driver.Value boxing.
//
// bindings is keyed by parameter name (without the leading `$`); missing
// names translate to SQL NULL.
func Stream(ctx context.Context, pool *pgxpool.Pool, source string, bindings map[string]interface{}, opts cypherql.Options) (pgx.Rows, error) {
	res, err := cypherql.Translate(source, opts)
	if err != nil {
		return nil, errors.Wrap(err, "translate")
	}

	args := make([]interface{}, len(res.Params))
	for i, name := range res.Params {
		args[i] = bindings[name]
	}

	logrus.WithFields(logrus.Fields{
		"params": res.Params,
	}).Debug("streaming translated query")

	rows, err := pool.Query(ctx, res.SQL, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	return rows, nil
}
