package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a node pipe address. Nodes listen on it and the coordinator
// opens it as its writing pipe before each exchange.
type Address [AddressSize]byte

// ParseAddress accepts either exactly five printable characters ("NODE1")
// or a 0x-prefixed hex string of ten digits ("0xE7E7E7E7E7").
func ParseAddress(s string) (Address, error) {
	var a Address

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hex.DecodeString(s[2:])
		if err != nil || len(raw) != AddressSize {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		copy(a[:], raw)
		return a, nil
	}

	if len(s) != AddressSize {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	for i := 0; i < AddressSize; i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		a[i] = s[i]
	}
	return a, nil
}

// MustParseAddress is ParseAddress for compile-time constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders printable addresses as text and anything else as hex.
func (a Address) String() string {
	for _, b := range a {
		if b < 0x20 || b > 0x7e {
			return "0x" + strings.ToUpper(hex.EncodeToString(a[:]))
		}
	}
	return string(a[:])
}

// MarshalText lets addresses appear as strings in JSON and YAML output.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the form produced by MarshalText.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
