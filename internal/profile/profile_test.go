package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, PROD, Parse("prod"))
	assert.Equal(t, TEST, Parse(" Test "))
	assert.Equal(t, DEV, Parse("DEV"))
	assert.Equal(t, DEV, Parse(""))
	assert.Equal(t, DEV, Parse("staging"))
}

func TestInitProfile(t *testing.T) {
	previous := Current
	t.Cleanup(func() { Current = previous })
	t.Setenv("PROFILE", "PROD")

	InitProfile()

	assert.Equal(t, PROD, Current)
}
