package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTargetFromBigIntRoundTrip(t *testing.T) {
	v := big.NewInt(123456789)
	target := TargetFromBigInt(v)
	require.Equal(t, v, target.ToBigInt())
}

func TestTargetFromBigIntClampsNonPositive(t *testing.T) {
	require.Equal(t, Target{}, TargetFromBigInt(big.NewInt(0)))
	require.Equal(t, Target{}, TargetFromBigInt(big.NewInt(-5)))
}

func TestMeetsTarget(t *testing.T) {
	target := TargetFromBigInt(big.NewInt(1000))
	var low, high [32]byte
	low[31] = 5
	high[30] = 4 // 1024, above 1000

	require.True(t, target.MeetsTarget(low))
	require.False(t, target.MeetsTarget(high))
}

func TestToDifficultyIsInverseOfTarget(t *testing.T) {
	small := TargetFromBigInt(big.NewInt(1000))
	large := TargetFromBigInt(big.NewInt(2000))
	require.True(t, small.ToDifficulty().Gt(large.ToDifficulty()))
}

func TestToDifficultyHandlesZeroTarget(t *testing.T) {
	var zero Target
	require.False(t, zero.ToDifficulty().IsZero())
}

func TestCalculateTargetSpeedsUpWhenBlocksAreSlow(t *testing.T) {
	prev := TargetFromBigInt(big.NewInt(1_000_000))
	// Elapsed time far exceeds the target (1000/15 = 66 buckets against a
	// target of 60/15 = 4), so the new target should grow (difficulty
	// falls) to make future blocks easier.
	next := CalculateTarget(1000, 0, prev, 60, 15, 99)
	require.True(t, next.ToBigInt().Cmp(prev.ToBigInt()) >= 0)
}

func TestCalculateTargetTightensWhenBlocksAreFast(t *testing.T) {
	prev := TargetFromBigInt(big.NewInt(1_000_000_000))
	next := CalculateTarget(1, 0, prev, 60, 15, 99)
	require.True(t, next.ToBigInt().Cmp(prev.ToBigInt()) <= 0)
}

func TestCalculateTargetNeverGoesBelowOne(t *testing.T) {
	prev := TargetFromBigInt(big.NewInt(1))
	next := CalculateTarget(1, 0, prev, 60, 15, 99)
	require.True(t, next.ToBigInt().Cmp(big.NewInt(0)) > 0)
}
