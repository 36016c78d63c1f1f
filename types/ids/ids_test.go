package ids

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

func TestNewAddressFormat(t *testing.T) {
	a, err := NewAddress(bytes.NewReader(bytes.Repeat([]byte{0xab}, 20)))
	require.NoError(t, err)
	assert.Equal(t, "0xabababababababababababababababababababab", a.String())
	assert.Regexp(t, addressPattern, a.String())
}

func TestNewAddressShortRead(t *testing.T) {
	_, err := NewAddress(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestHashFormat(t *testing.T) {
	h, err := NewHash(bytes.NewReader(make([]byte, 32)))
	require.NoError(t, err)
	assert.Len(t, h.String(), 66)
}

func TestAddressFromString(t *testing.T) {
	a, err := AddressFromString("0xABCDEF1234567890abcdef1234567890abcdef12")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef1234567890abcdef1234567890abcdef12", a.String())

	for _, bad := range []string{"", "0x", "abcdef1234567890abcdef1234567890abcdef12", "0x1234"} {
		assert.False(t, IsAddress(bad), bad)
	}
}

func TestShortHex(t *testing.T) {
	s, err := ShortHex(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x01}), 8)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", s)
}
