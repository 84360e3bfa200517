package audiosource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSilenceYieldsZerosAndDeactivates(t *testing.T) {
	src := NewSilence(44100, 8, 2)
	ctx := context.Background()
	hop := make([]float64, 8)

	require.True(t, src.Active())
	require.NoError(t, src.NextHop(ctx, hop))
	for _, v := range hop {
		assert.Zero(t, v)
	}

	require.NoError(t, src.NextHop(ctx, hop))
	assert.False(t, src.Active())

	require.NoError(t, src.NextHop(ctx, hop))
	for _, v := range hop {
		assert.Zero(t, v)
	}
}

func TestClickTrainPlacesImpulseAtPeriod(t *testing.T) {
	src := NewClickTrain(44100, 4, 3, 9, 1.0)
	ctx := context.Background()
	hop := make([]float64, 4)

	for i := 0; i < 9; i++ {
		require.NoError(t, src.NextHop(ctx, hop))
		if i%3 == 0 {
			assert.Equal(t, 1.0, hop[0])
		} else {
			assert.Zero(t, hop[0])
		}
	}
}

func TestSingleTransientFiresOnce(t *testing.T) {
	src := NewSingleTransient(44100, 4, 5, 10, 2.0)
	ctx := context.Background()
	hop := make([]float64, 4)

	for i := 0; i < 10; i++ {
		require.NoError(t, src.NextHop(ctx, hop))
		if i == 5 {
			assert.Equal(t, 2.0, hop[0])
		} else {
			assert.Zero(t, hop[0])
		}
	}
}
