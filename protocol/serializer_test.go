package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultJSONSerializer(t *testing.T) {
	s := DefaultJSONSerializer{}

	data, err := s.Marshal(&DepthItem{Price: "101.5", Size: 7, Count: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"101.5","size":7,"count":2}`, string(data))

	var item DepthItem
	require.NoError(t, s.Unmarshal(data, &item))
	assert.Equal(t, "101.5", item.Price)
	assert.Equal(t, uint64(7), item.Size)

	assert.Error(t, s.Unmarshal([]byte("{"), &item))
}

func TestSide(t *testing.T) {
	assert.Equal(t, "buy", SideBuy.String())
	assert.Equal(t, "sell", SideSell.String())
	assert.Equal(t, "unknown", Side(9).String())
	assert.True(t, SideBuy.Valid())
	assert.False(t, Side(0).Valid())
}
