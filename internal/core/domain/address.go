package domain

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"strings"
)

const rippleAlphabet = "rpshnaf39wBUDNEGHJKLM4PQRST7VWXYZ2bcdeCg65jkm8oFqi1tuvAxyz"

const accountIDPrefix = 0x00

// IsValidClassicAddress checks the base58 encoding, version byte and
// checksum of an r-address.
func IsValidClassicAddress(addr string) bool {
	if len(addr) < 25 || len(addr) > 35 || addr[0] != 'r' {
		return false
	}
	decoded, ok := decodeBase58(addr)
	if !ok || len(decoded) != 25 || decoded[0] != accountIDPrefix {
		return false
	}
	payload, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return bytes.Equal(second[:4], checksum)
}

func decodeBase58(s string) ([]byte, bool) {
	n := new(big.Int)
	radix := big.NewInt(58)
	for _, r := range s {
		idx := strings.IndexRune(rippleAlphabet, r)
		if idx < 0 {
			return nil, false
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(idx)))
	}

	zeros := 0
	for zeros < len(s) && s[zeros] == rippleAlphabet[0] {
		zeros++
	}
	return append(make([]byte, zeros), n.Bytes()...), true
}
