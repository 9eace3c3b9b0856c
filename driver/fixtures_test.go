package driver

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNodeFixtureDefaultsToNilUUIDBeforeSeeding(t *testing.T) {
	n := NodeFixture{Labels: []string{"Person"}, Properties: map[string]interface{}{"name": "Ada"}}
	assert.Equal(t, uuid.Nil, n.ID)
}

func TestNodeFixtureHonorsExplicitID(t *testing.T) {
	id := uuid.New()
	n := NodeFixture{ID: id, Labels: []string{"Person"}}
	assert.Equal(t, id, n.ID)
}
