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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// NodeFixture is one row to seed into the nodes table. ID is generated if
// left as uuid.Nil.
type NodeFixture struct {
	ID         uuid.UUID
	Labels     []string
	Properties map[string]interface{}
}

// EdgeFixture is one row to seed into the edges table, referencing the
// source/target nodes by the index they were passed to SeedFixtures at.
type EdgeFixture struct {
	Source     int
	Target     int
	Labels     []string
	Properties map[string]interface{}
}

// SeedFixtures inserts a small example graph (used by demos and manual
// smoke tests) into schema's nodes/edges tables, assigning a fresh uuid to
// any NodeFixture left without one.
func SeedFixtures(ctx context.Context, pool *pgxpool.Pool, schema string, nodes []NodeFixture, edges []EdgeFixture) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		id := n.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		ids[i] = id

		_, err := pool.Exec(ctx,
			"INSERT INTO "+schema+".nodes (id, labels, properties) VALUES ($1, $2, $3)",
			id, n.Labels, n.Properties,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "seeding node %d", i)
		}
	}

	for i, e := range edges {
		if e.Source < 0 || e.Source >= len(ids) || e.Target < 0 || e.Target >= len(ids) {
			return nil, errors.Errorf("seeding edge %d: source/target index out of range", i)
		}
		_, err := pool.Exec(ctx,
			"INSERT INTO "+schema+".edges (source, target, labels, properties) VALUES ($1, $2, $3, $4)",
			ids[e.Source], ids[e.Target], e.Labels, e.Properties,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "seeding edge %d", i)
		}
	}

	return ids, nil
}
