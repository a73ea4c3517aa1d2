package types

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Target is a 256-bit proof-of-work difficulty target, stored big-endian
// the way a block hash is compared against it byte-for-byte.
type Target [32]byte

// maxTargetInt is the target of a block with the lowest possible difficulty
// (difficulty 1): the full 256-bit space.
var maxTargetInt = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ToBigInt interprets the target as a big-endian unsigned integer.
func (t Target) ToBigInt() *big.Int {
	return new(big.Int).SetBytes(t[:])
}

// ToUint256 interprets the target as a big-endian unsigned 256-bit integer,
// the representation the mining manager's fork-choice math (work
// accumulation) operates on via github.com/holiman/uint256.
func (t Target) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(t[:])
}

// TargetFromBigInt clamps v into the 256-bit target space and serializes it
// big-endian.
func TargetFromBigInt(v *big.Int) Target {
	var t Target
	if v.Sign() <= 0 {
		return t
	}
	b := v.Bytes()
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(t[32-len(b):], b)
	return t
}

// ToDifficulty returns the inverse-proportional difficulty of the target:
// maxTarget / target. Difficulty increases as the target shrinks.
func (t Target) ToDifficulty() *uint256.Int {
	ti := t.ToBigInt()
	if ti.Sign() == 0 {
		return new(uint256.Int).SetAllOne()
	}
	d := new(big.Int).Div(maxTargetInt, ti)
	result, overflow := uint256.FromBig(d)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return result
}

// MeetsTarget reports whether hash, interpreted as a big-endian unsigned
// integer, is less than or equal to the target.
func (t Target) MeetsTarget(hash [32]byte) bool {
	var h, target uint256.Int
	h.SetBytes(hash[:])
	target.SetBytes(t[:])
	return h.Cmp(&target) <= 0
}

// CalculateTarget derives the next block's target from the timestamps and
// target of the previous block, adjusting difficulty toward
// targetBlockTimeSeconds. The adjustment is bucketed: elapsed time is
// divided into targetBucketTimeSeconds buckets (capped at bucketMax) and
// the target is scaled by the ratio of that bucket count to the number of
// buckets in targetBlockTimeSeconds (a bucket count of zero is treated as
// one).
func CalculateTarget(currentTime, previousTime int64, previousTarget Target, targetBlockTimeSeconds, targetBucketTimeSeconds uint32, bucketMax int) Target {
	elapsed := currentTime - previousTime
	if elapsed < 0 {
		elapsed = 0
	}
	buckets := elapsed / int64(targetBucketTimeSeconds)
	if buckets > int64(bucketMax) {
		buckets = int64(bucketMax)
	}
	if buckets < -int64(bucketMax) {
		buckets = -int64(bucketMax)
	}

	targetBuckets := int64(targetBlockTimeSeconds) / int64(targetBucketTimeSeconds)
	if targetBuckets == 0 {
		targetBuckets = 1
	}

	prev := previousTarget.ToBigInt()
	if prev.Sign() == 0 {
		return previousTarget
	}

	// new = prev * buckets / targetBuckets, clamped to [1, maxTarget].
	delta := buckets - targetBuckets
	adjusted := new(big.Int).Set(prev)
	if delta != 0 {
		numerator := targetBuckets + delta
		if numerator < 1 {
			numerator = 1
		}
		adjusted.Mul(adjusted, big.NewInt(numerator))
		adjusted.Div(adjusted, big.NewInt(targetBuckets))
	}
	if adjusted.Cmp(maxTargetInt) > 0 {
		adjusted.Set(maxTargetInt)
	}
	if adjusted.Sign() < 1 {
		adjusted.SetInt64(1)
	}
	return TargetFromBigInt(adjusted)
}
