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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesToArgsPreservesOrder(t *testing.T) {
	args := valuesToArgs([]driver.Value{"a", int64(1), nil})
	assert.Equal(t, []interface{}{"a", int64(1), nil}, args)
}

func TestNamedValuesToArgsRespectsOrdinal(t *testing.T) {
	args := namedValuesToArgs([]driver.NamedValue{
		{Ordinal: 2, Value: "second"},
		{Ordinal: 1, Value: "first"},
	})
	assert.Equal(t, []interface{}{"first", "second"}, args)
}

func TestResultRowsAffected(t *testing.T) {
	r := &Result{rows: 3}
	n, err := r.RowsAffected()
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = r.LastInsertId()
	assert.Error(t, err)
}
