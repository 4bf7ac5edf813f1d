// Package header provides the canonical RLP encoding and decoding of the
// 15 field Ethereum block header consumed by the ethash proof tooling.
package header

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FieldCount is the number of items in an encoded header list.
const FieldCount = 15

// BlockHeader represents the proof of work header of a block. The integer
// fields are arbitrary precision since difficulty can exceed 64 bits. A nil
// integer field is treated as zero.
type BlockHeader struct {
	ParentHash       common.Hash
	UnclesHash       common.Hash
	Author           common.Address
	StateRoot        common.Hash
	TransactionsRoot common.Hash
	ReceiptsRoot     common.Hash
	LogBloom         types.Bloom
	Difficulty       *big.Int
	Number           *big.Int
	GasLimit         *big.Int
	GasUsed          *big.Int
	Timestamp        *big.Int
	ExtraData        []byte
	MixHash          common.Hash
	Nonce            types.BlockNonce
}

// Equal reports whether both headers carry the same values. Integer fields
// are compared by value so nil and zero are the same.
func Equal(a, b BlockHeader) bool {
	for _, f := range fields {
		switch av := f.ref(&a).(type) {
		case **big.Int:
			bv := f.ref(&b).(**big.Int)
			if intValue(*av).Cmp(intValue(*bv)) != 0 {
				return false
			}
		default:
			if !bytes.Equal(f.raw(&a), f.raw(&b)) {
				return false
			}
		}
	}
	return true
}

// FieldName returns the name of the header field at the specified list
// index or an empty string when the index is out of range.
func FieldName(index int) string {
	if index < 0 || index >= FieldCount {
		return ""
	}
	return fields[index].name
}

// =============================================================================

// field describes one position in the encoded header list. The fields table
// below is the only place the ordering of the header is defined.
type field struct {
	name string
	ref  func(h *BlockHeader) any
	text func(r *Raw) *string
}

var fields = [FieldCount]field{
	{"parentHash", func(h *BlockHeader) any { return &h.ParentHash }, func(r *Raw) *string { return &r.ParentHash }},
	{"sha3Uncles", func(h *BlockHeader) any { return &h.UnclesHash }, func(r *Raw) *string { return &r.UnclesHash }},
	{"miner", func(h *BlockHeader) any { return &h.Author }, func(r *Raw) *string { return &r.Author }},
	{"stateRoot", func(h *BlockHeader) any { return &h.StateRoot }, func(r *Raw) *string { return &r.StateRoot }},
	{"transactionsRoot", func(h *BlockHeader) any { return &h.TransactionsRoot }, func(r *Raw) *string { return &r.TransactionsRoot }},
	{"receiptsRoot", func(h *BlockHeader) any { return &h.ReceiptsRoot }, func(r *Raw) *string { return &r.ReceiptsRoot }},
	{"logsBloom", func(h *BlockHeader) any { return &h.LogBloom }, func(r *Raw) *string { return &r.LogBloom }},
	{"difficulty", func(h *BlockHeader) any { return &h.Difficulty }, func(r *Raw) *string { return (*string)(&r.Difficulty) }},
	{"number", func(h *BlockHeader) any { return &h.Number }, func(r *Raw) *string { return (*string)(&r.Number) }},
	{"gasLimit", func(h *BlockHeader) any { return &h.GasLimit }, func(r *Raw) *string { return (*string)(&r.GasLimit) }},
	{"gasUsed", func(h *BlockHeader) any { return &h.GasUsed }, func(r *Raw) *string { return (*string)(&r.GasUsed) }},
	{"timestamp", func(h *BlockHeader) any { return &h.Timestamp }, func(r *Raw) *string { return (*string)(&r.Timestamp) }},
	{"extraData", func(h *BlockHeader) any { return &h.ExtraData }, func(r *Raw) *string { return &r.ExtraData }},
	{"mixHash", func(h *BlockHeader) any { return &h.MixHash }, func(r *Raw) *string { return &r.MixHash }},
	{"nonce", func(h *BlockHeader) any { return &h.Nonce }, func(r *Raw) *string { return &r.Nonce }},
}

// width returns the natural width of a fixed size field and false for the
// variable length fields.
func (f field) width(h *BlockHeader) (int, bool) {
	switch f.ref(h).(type) {
	case *common.Hash:
		return common.HashLength, true
	case *common.Address:
		return common.AddressLength, true
	case *types.Bloom:
		return types.BloomByteLength, true
	case *types.BlockNonce:
		return len(types.BlockNonce{}), true
	}
	return 0, false
}

// raw returns the field value in its wire form. Integers come back as their
// absolute value here, encode performs the sign check.
func (f field) raw(h *BlockHeader) []byte {
	switch v := f.ref(h).(type) {
	case *common.Hash:
		return v.Bytes()
	case *common.Address:
		return v.Bytes()
	case *types.Bloom:
		return v.Bytes()
	case *types.BlockNonce:
		return v[:]
	case *[]byte:
		return *v
	case **big.Int:
		return intValue(*v).Bytes()
	}
	panic(fmt.Sprintf("header: unsupported field type %T", f.ref(h)))
}

// encode returns the canonical wire bytes for the field.
func (f field) encode(h *BlockHeader) ([]byte, error) {
	if v, ok := f.ref(h).(**big.Int); ok {
		return canonicalInt(*v)
	}
	return f.raw(h), nil
}

// decode stores the wire bytes into the field. Fixed size fields must match
// their natural width, integers accept any big endian byte string.
func (f field) decode(h *BlockHeader, b []byte) error {
	if w, fixed := f.width(h); fixed && len(b) != w {
		return fmt.Errorf("got %d bytes, want %d", len(b), w)
	}

	switch v := f.ref(h).(type) {
	case *common.Hash:
		copy(v[:], b)
	case *common.Address:
		copy(v[:], b)
	case *types.Bloom:
		copy(v[:], b)
	case *types.BlockNonce:
		copy(v[:], b)
	case *[]byte:
		*v = common.CopyBytes(b)
	case **big.Int:
		*v = new(big.Int).SetBytes(b)
	}

	return nil
}

// =============================================================================

// canonicalInt renders the value as a minimal big endian byte string. Zero
// and nil are the empty string.
func canonicalInt(n *big.Int) ([]byte, error) {
	if n == nil {
		return []byte{}, nil
	}
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", n)
	}
	return n.Bytes(), nil
}

func intValue(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
