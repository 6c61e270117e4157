// Package feesplit partitions gross stable proceeds between a platform
// fee recipient and a creator. The split is a pure function: exact
// conservation, floor rounding toward the platform share, no dust.
package feesplit

import (
	"math/big"

	aqmint "github.com/aqmint/aqmint-go"
)

// Denominator is the basis-point scale: 10000 bps = 100%.
const Denominator = 10000

// BasisPoints is a validated fee fraction in [0, 10000]. Construct it
// through NewBasisPoints so out-of-range fractions are rejected at
// configuration time, never at split time.
type BasisPoints uint16

// NewBasisPoints validates v and returns it as BasisPoints.
func NewBasisPoints(v uint16) (BasisPoints, error) {
	if v > Denominator {
		return 0, aqmint.Revertf(aqmint.ErrCodeConfiguration, "fee fraction %d exceeds %d basis points", v, Denominator)
	}
	return BasisPoints(v), nil
}

// MustBasisPoints is NewBasisPoints for statically known values.
func MustBasisPoints(v uint16) BasisPoints {
	bps, err := NewBasisPoints(v)
	if err != nil {
		panic(err)
	}
	return bps
}

// Uint16 returns the raw basis-point value.
func (b BasisPoints) Uint16() uint16 { return uint16(b) }

// Split partitions gross into the platform share and the creator share:
//
//	platform = floor(gross * bps / 10000)
//	creator  = gross - platform
//
// so platform + creator == gross for every gross >= 0.
func Split(gross *big.Int, bps BasisPoints) (platform, creator *big.Int) {
	platform = new(big.Int).Mul(gross, big.NewInt(int64(bps)))
	platform.Quo(platform, big.NewInt(Denominator))
	creator = new(big.Int).Sub(gross, platform)
	return platform, creator
}
