package randx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SameSeedReplays(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 50; i++ {
		require.Equal(t, a.Between(400*time.Millisecond, 1200*time.Millisecond),
			b.Between(400*time.Millisecond, 1200*time.Millisecond))
		require.Equal(t, a.IntN(3), b.IntN(3))
	}
}

func TestBetween_StaysInRange(t *testing.T) {
	src := New(7)
	lo, hi := 500*time.Millisecond, 1500*time.Millisecond
	for i := 0; i < 1000; i++ {
		d := src.Between(lo, hi)
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}
}

func TestBetween_DegenerateRange(t *testing.T) {
	src := New(1)
	assert.Equal(t, time.Duration(0), src.Between(0, 0))
	assert.Equal(t, time.Second, src.Between(time.Second, time.Millisecond))
}

func TestIntN_Small(t *testing.T) {
	src := New(1)
	assert.Equal(t, 0, src.IntN(0))
	assert.Equal(t, 0, src.IntN(1))
}
