package amm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PairKey identifies the pool of an unordered token pair.
//
// The key is keccak256(tokenLow ++ tokenHigh) where the tokens are sorted by
// their byte representation, so (A, B) and (B, A) share a key.
type PairKey common.Hash

// SortTokens returns the two tokens smaller-first.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) <= 0 {
		return a, b
	}
	return b, a
}

// PairKeyOf returns the canonical key of a token pair.
func PairKeyOf(a, b common.Address) PairKey {
	low, high := SortTokens(a, b)
	return PairKey(crypto.Keccak256Hash(low.Bytes(), high.Bytes()))
}

// Custody returns the account holding this pool's reserves.
func (k PairKey) Custody() common.Address {
	return common.BytesToAddress(k[12:])
}

// String returns the 0x-prefixed hex key.
func (k PairKey) String() string {
	return common.Hash(k).Hex()
}

// ParsePairKey parses a 0x-prefixed 32-byte hex key.
func ParsePairKey(input string) (PairKey, error) {
	b := common.FromHex(input)
	if len(b) != common.HashLength {
		return PairKey{}, fmt.Errorf("invalid pair key: %s", input)
	}
	return PairKey(common.BytesToHash(b)), nil
}
