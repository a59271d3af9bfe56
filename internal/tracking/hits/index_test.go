package hits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/geometry"
)

func sampleRaw() []RawHit {
	return []RawHit{
		{SuperLayer: 3, Layer: 2, Wire: 100, DriftLength: 0.4},
		{SuperLayer: 0, Layer: 7, Wire: 3, DriftLength: 0.1},
		{SuperLayer: 3, Layer: 0, Wire: 5, DriftLength: 0.2},
		{SuperLayer: 0, Layer: 0, Wire: 159, DriftLength: 0.3},
		{SuperLayer: 3, Layer: 2, Wire: 100, DriftLength: 0.5},
	}
}

func TestIndex_SortedByWire(t *testing.T) {
	t.Parallel()

	x := NewIndex(geometry.IdealTopology())
	x.Fill(sampleRaw())
	require.Equal(t, 5, x.Len())

	for i := 1; i < x.Len(); i++ {
		assert.LessOrEqual(t, x.WireID(i-1).Encode(), x.WireID(i).Encode())
	}
	// Duplicates on one wire keep the raw order.
	lo, hi := x.OnWire(geometry.WireID{SuperLayer: 3, Layer: 2, Wire: 100})
	require.Equal(t, 2, hi-lo)
	assert.Equal(t, 0, x.Hit(lo).RawIndex)
	assert.Equal(t, 4, x.Hit(lo+1).RawIndex)
}

func TestIndex_OrientedPairsAdjacentAndOpposite(t *testing.T) {
	t.Parallel()

	x := NewIndex(geometry.IdealTopology())
	x.Fill(sampleRaw())
	require.Equal(t, 2*x.Len(), x.NOriented())

	for i := 0; i < x.Len(); i++ {
		left, right := x.Oriented(2*i), x.Oriented(2*i+1)
		assert.Equal(t, i, left.Hit)
		assert.Equal(t, i, right.Hit)
		assert.Equal(t, left.RL.Opposite(), right.RL)
		assert.NotEqual(t, Unknown, left.RL)
		assert.Equal(t, 2*i+1, Reverse(2*i))
		assert.Equal(t, 2*i, Reverse(2*i+1))
		assert.Equal(t, i, HitOf(OrientedOf(i, Right)))
		assert.Equal(t, -left.SignedDriftLength(), right.SignedDriftLength())
	}
}

func TestIndex_Ranges(t *testing.T) {
	t.Parallel()

	x := NewIndex(geometry.IdealTopology())
	x.Fill(sampleRaw())

	lo, hi := x.SuperLayerRange(0)
	assert.Equal(t, 2, hi-lo)
	lo, hi = x.SuperLayerRange(3)
	assert.Equal(t, 3, hi-lo)
	lo, hi = x.SuperLayerRange(5)
	assert.Equal(t, lo, hi)
	lo, hi = x.LayerRange(3, 2)
	assert.Equal(t, 2, hi-lo)

	_, ok := x.Find(geometry.WireID{SuperLayer: 0, Layer: 7, Wire: 4})
	assert.False(t, ok)
	i, ok := x.Find(geometry.WireID{SuperLayer: 0, Layer: 7, Wire: 3})
	require.True(t, ok)
	assert.Equal(t, 1, x.Hit(i).RawIndex)
}

func TestIndex_HitForRaw(t *testing.T) {
	t.Parallel()

	raw := sampleRaw()
	x := NewIndex(geometry.IdealTopology())
	x.Fill(raw)
	for r := range raw {
		i, ok := x.HitForRaw(r)
		require.True(t, ok)
		assert.Equal(t, r, x.Hit(i).RawIndex)
		assert.Equal(t, raw[r].DriftLength, x.Hit(i).DriftLength)
	}
	_, ok := x.HitForRaw(len(raw))
	assert.False(t, ok)
}

func TestIndex_FillWithoutClearPanics(t *testing.T) {
	t.Parallel()

	x := NewIndex(geometry.IdealTopology())
	x.Fill(sampleRaw())
	assert.PanicsWithError(t, "hits: Fill: index holds 5 hits of a previous event; call Clear first", func() {
		x.Fill(sampleRaw())
	})

	x.Clear()
	assert.Zero(t, x.Len())
	assert.NotPanics(t, func() { x.Fill(sampleRaw()[:2]) })
	assert.Equal(t, 2, x.Len())
}

func TestIndex_InvalidWirePanics(t *testing.T) {
	t.Parallel()

	for _, raw := range []RawHit{
		{SuperLayer: 9},
		{SuperLayer: 0, Layer: 8},
		{SuperLayer: 8, Layer: 0, Wire: 384},
		{SuperLayer: -1},
	} {
		x := NewIndex(geometry.IdealTopology())
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				_, ok := r.(*ContractError)
				assert.True(t, ok, "panic value %T", r)
			}()
			x.Fill([]RawHit{raw})
		}()
	}
}

func TestIndex_EmptyEvent(t *testing.T) {
	t.Parallel()

	x := NewIndex(geometry.IdealTopology())
	x.Fill(nil)
	assert.Zero(t, x.Len())
	lo, hi := x.SuperLayerRange(0)
	assert.Equal(t, lo, hi)
}

func TestIndex_Cells(t *testing.T) {
	t.Parallel()

	x := NewIndex(geometry.IdealTopology())
	x.Fill(sampleRaw())
	x.Cell(2).SetTaken()
	assert.True(t, x.Cell(2).Taken())
	x.ResetCells()
	assert.False(t, x.Cell(2).Taken())
}
