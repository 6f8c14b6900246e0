package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	type record struct {
		Dataset string  `json:"dataset"`
		AdjR2   float64 `json:"adj_r2"`
	}

	in := record{Dataset: "run1", AdjR2: 0.982}

	data, err := JSON{}.Marshal(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestByName(t *testing.T) {
	c, ok := ByName("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())

	_, ok = ByName("msgpack")
	assert.False(t, ok)
}
