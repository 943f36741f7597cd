package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues_JSON(t *testing.T) {
	v := Values{1.5, math.NaN(), math.Inf(1), 0}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null, null, 0]`, string(data))

	var back Values
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 4)
	assert.Equal(t, 1.5, back[0])
	assert.True(t, math.IsNaN(back[1]))
	assert.True(t, math.IsNaN(back[2]))
	assert.Equal(t, 0.0, back[3])
}
