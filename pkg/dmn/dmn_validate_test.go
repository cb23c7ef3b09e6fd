package dmn

import (
	"context"
	"testing"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_validate_accepts_consistent_definitions(t *testing.T) {
	engine := NewEngine()
	for _, path := range []string{
		"./test-data/bulk-evaluation-test/dish.dmn",
		"./test-data/bulk-evaluation-test/loan.dmn",
		"./test-data/imports/main.dmn",
	} {
		definition, err := engine.LoadFromFile(context.Background(), path)
		require.NoError(t, err)
		assert.NoError(t, engine.Validate(context.Background(), definition), path)
	}
}

func Test_validate_reports_cycles(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/cycle.dmn")
	require.NoError(t, err)

	err = engine.Validate(context.Background(), definition)

	assert.ErrorIs(t, err, dmnerr.ErrCircularDependency)
	assert.ErrorContains(t, err, "cycle_a -> cycle_b -> cycle_a")
}

func Test_validate_reports_dangling_references(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/dangling.dmn")
	require.NoError(t, err)

	err = engine.Validate(context.Background(), definition)

	assert.ErrorIs(t, err, dmnerr.ErrValidation)
	assert.NotErrorIs(t, err, dmnerr.ErrCircularDependency)
	assert.ErrorContains(t, err, "no_such_input")
	assert.ErrorContains(t, err, "no_such_bkm")
	assert.ErrorContains(t, err, "no_such_decision")
}

func Test_validate_reports_missing_required_decision(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	err := engine.Validate(context.Background(), definition)

	assert.ErrorIs(t, err, dmnerr.ErrValidation)
	assert.ErrorContains(t, err, "does_not_exist")
}
