package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash8(t *testing.T) {
	a := Hash8("ann@x.com")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Hash8("ann@x.com"))
	assert.NotEqual(t, a, Hash8("Ann@x.com"))
	assert.NotContains(t, EmailField("ann@x.com").String, "ann")
}
