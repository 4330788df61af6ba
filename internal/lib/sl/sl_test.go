package sl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/basimtrading/auth-gate/internal/lib/sl"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("device already bound"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "device already bound", attr.Value.String())
}
