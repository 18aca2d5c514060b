package fusinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	info := FirmwareInfo{Model: "SM-G998B", Region: "EUX", Version: "G998BXXU5", Filename: "firmware.bin"}

	k1 := DeriveKey(info, 16)
	k2 := DeriveKey(info, 16)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 16)
}

func TestDeriveKey_DiffersByMetadata(t *testing.T) {
	a := DeriveKey(FirmwareInfo{Model: "A"}, 16)
	b := DeriveKey(FirmwareInfo{Model: "B"}, 16)
	assert.NotEqual(t, a, b)
}

func TestDeriveKey_LongerThanSingleHMACBlock(t *testing.T) {
	info := FirmwareInfo{Model: "SM-G998B", Region: "EUX", Version: "1"}
	k := DeriveKey(info, 48)
	assert.Len(t, k, 48)
}
