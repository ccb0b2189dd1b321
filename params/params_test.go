package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allKinds struct {
	Name     string        `param:"name"`
	Enabled  bool          `param:"enabled"`
	Count    int           `param:"count"`
	Unsigned uint          `param:"unsigned"`
	Ratio    float64       `param:"ratio"`
	Timeout  time.Duration `param:"timeout"`
	Untagged string
}

func TestBindAllKinds(t *testing.T) {
	var dst allKinds
	dst.Untagged = "unchanged"

	err := Bind(&dst, Map{
		"name":     "block-a",
		"enabled":  "true",
		"count":    "-7",
		"unsigned": "42",
		"ratio":    "3.5",
		"timeout":  "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, "block-a", dst.Name)
	assert.True(t, dst.Enabled)
	assert.Equal(t, -7, dst.Count)
	assert.Equal(t, uint(42), dst.Unsigned)
	assert.Equal(t, 3.5, dst.Ratio)
	assert.Equal(t, 250*time.Millisecond, dst.Timeout)
	assert.Equal(t, "unchanged", dst.Untagged)
}

func TestBindLeavesUnmatchedFieldsAlone(t *testing.T) {
	dst := allKinds{Name: "default"}
	require.NoError(t, Bind(&dst, Map{}))
	assert.Equal(t, "default", dst.Name)
}

func TestBindRejectsNonPointer(t *testing.T) {
	var dst allKinds
	err := Bind(dst, Map{"name": "x"})
	assert.Error(t, err)
}

func TestBindRejectsBadValue(t *testing.T) {
	var dst allKinds
	err := Bind(&dst, Map{"count": "not-a-number"})
	assert.Error(t, err)
}
