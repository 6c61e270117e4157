package feesplit

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBasisPoints(t *testing.T) {
	tests := []struct {
		name    string
		value   uint16
		wantErr bool
	}{
		{name: "zero", value: 0},
		{name: "ten percent", value: 1000},
		{name: "full", value: 10000},
		{name: "over full", value: 10001, wantErr: true},
		{name: "far over full", value: 65535, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bps, err := NewBasisPoints(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, bps.Uint16())
		})
	}
}

func TestSplitConservation(t *testing.T) {
	tests := []struct {
		name         string
		gross        int64
		bps          uint16
		wantPlatform int64
		wantCreator  int64
	}{
		{name: "ten percent of 1.2M", gross: 1_200_000, bps: 1000, wantPlatform: 120_000, wantCreator: 1_080_000},
		{name: "ten percent of 5M", gross: 5_000_000, bps: 1000, wantPlatform: 500_000, wantCreator: 4_500_000},
		{name: "thirty percent", gross: 1_000_000, bps: 3000, wantPlatform: 300_000, wantCreator: 700_000},
		{name: "zero fee", gross: 1_000_000, bps: 0, wantPlatform: 0, wantCreator: 1_000_000},
		{name: "full fee", gross: 1_000_000, bps: 10000, wantPlatform: 1_000_000, wantCreator: 0},
		{name: "rounding floors toward platform", gross: 999, bps: 1, wantPlatform: 0, wantCreator: 999},
		{name: "odd split leaves no dust", gross: 1001, bps: 5000, wantPlatform: 500, wantCreator: 501},
		{name: "zero gross", gross: 0, bps: 1000, wantPlatform: 0, wantCreator: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross := big.NewInt(tt.gross)
			platform, creator := Split(gross, MustBasisPoints(tt.bps))

			assert.Zero(t, platform.Cmp(big.NewInt(tt.wantPlatform)))
			assert.Zero(t, creator.Cmp(big.NewInt(tt.wantCreator)))

			// Exact conservation, never dust.
			sum := new(big.Int).Add(platform, creator)
			assert.Zero(t, sum.Cmp(gross))
		})
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	gross := big.NewInt(123_456_789)
	p1, c1 := Split(gross, MustBasisPoints(250))
	p2, c2 := Split(gross, MustBasisPoints(250))
	assert.Equal(t, p1, p2)
	assert.Equal(t, c1, c2)
}
