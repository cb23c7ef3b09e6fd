package dmnerr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfItsKind(t *testing.T) {
	err := New(DecisionNotFound, "Decision ID [%v] doesnt exist.", "dish")

	assert.ErrorIs(t, err, ErrDecisionNotFound)
	assert.NotErrorIs(t, err, ErrExecution)
	assert.Equal(t, "Decision ID [dish] doesnt exist.", err.Error())
	assert.Equal(t, DecisionNotFound, KindOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(FileNotFound, fs.ErrNotExist, "dmn file not found: %s", "a.dmn")

	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "dmn file not found: a.dmn: file does not exist", err.Error())
}

func TestKindOfFollowsWrappedChains(t *testing.T) {
	err := fmt.Errorf("failed to evaluate decision: %v, %w", "dish", New(CircularDependency, "cycle"))
	joined := errors.Join(errors.New("context"), err)

	assert.Equal(t, CircularDependency, KindOf(err))
	assert.Equal(t, CircularDependency, KindOf(joined))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "FEELSyntaxError", FEELSyntax.String())
	assert.Equal(t, "DMNParseError", Parse.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Equal(t, "DMNValidationError", ErrValidation.Error())
}
