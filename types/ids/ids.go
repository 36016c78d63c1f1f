package ids

import (
	"errors"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// AddressLength is the byte length of a wallet address.
	AddressLength = 20
	// HashLength is the byte length of a transaction hash.
	HashLength = 32
)

// Address is a 20-byte wallet address.
type Address [AddressLength]byte

// Hash is a 32-byte transaction hash.
type Hash [HashLength]byte

// NewAddress reads a random address from r.
func NewAddress(r io.Reader) (Address, error) {
	var a Address
	if _, err := io.ReadFull(r, a[:]); err != nil {
		return a, err
	}
	return a, nil
}

// NewHash reads a random hash from r.
func NewHash(r io.Reader) (Hash, error) {
	var h Hash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, err
	}
	return h, nil
}

// String renders the address as 0x followed by 40 lowercase hex characters.
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// String renders the hash as 0x followed by 64 lowercase hex characters.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// AddressFromString parses a 0x-prefixed 40-hex-character address.
// Mixed case is accepted; no checksum is verified.
func AddressFromString(s string) (Address, error) {
	var a Address
	b, err := hexutil.Decode(strings.ToLower(s))
	if err != nil {
		return a, err
	}
	if len(b) != AddressLength {
		return a, errors.New("address must be 20 bytes")
	}
	copy(a[:], b)
	return a, nil
}

// IsAddress reports whether s is a well-formed address string.
func IsAddress(s string) bool {
	_, err := AddressFromString(s)
	return err == nil
}

// ShortHex returns the first n hex characters of random bytes read from r,
// used for short synthetic identifiers such as transaction ids.
func ShortHex(r io.Reader, n int) (string, error) {
	b := make([]byte, (n+1)/2)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return strings.TrimPrefix(hexutil.Encode(b), "0x")[:n], nil
}
