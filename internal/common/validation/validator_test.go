package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `validate:"required"`
	Level int    `validate:"min=1,max=100"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Name: "ok", Level: 5}))

	errs := Validate(sample{Level: 101})
	require.Len(t, errs, 2)
	assert.Equal(t, "sample.Name", errs[0].Field)
	assert.Contains(t, errs[1].Message, "max")
	assert.Contains(t, Join(errs), "sample.Level")
}
