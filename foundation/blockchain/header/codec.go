package header

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Encode returns the canonical RLP encoding of the header. Integer fields are
// written as minimal big endian byte strings, every other field is written
// as is.
func Encode(h BlockHeader) ([]byte, error) {
	items := make([][]byte, FieldCount)
	for i, f := range fields {
		b, err := f.encode(&h)
		if err != nil {
			return nil, newFormatError(i, err.Error())
		}
		items[i] = b
	}

	data, err := rlp.EncodeToBytes(items)
	if err != nil {
		return nil, newFormatError(-1, err.Error())
	}

	return data, nil
}

// Decode parses an RLP encoded header list. Integer fields with superfluous
// leading zero bytes are accepted, so encoding the result is not guaranteed
// to reproduce the input byte for byte.
func Decode(data []byte) (BlockHeader, error) {
	kind, content, rest, err := rlp.Split(data)
	if err != nil {
		return BlockHeader{}, newFormatError(-1, fmt.Sprintf("malformed rlp: %s", err))
	}

	if kind != rlp.List {
		return BlockHeader{}, newFormatError(-1, "top-level item is not a list")
	}

	if len(rest) > 0 {
		return BlockHeader{}, newFormatError(-1, fmt.Sprintf("%d trailing bytes after header list", len(rest)))
	}

	count, err := rlp.CountValues(content)
	if err != nil {
		return BlockHeader{}, newFormatError(-1, fmt.Sprintf("malformed header list: %s", err))
	}

	if count != FieldCount {
		return BlockHeader{}, newFormatError(-1, fmt.Sprintf("header list has %d items, want %d", count, FieldCount))
	}

	var h BlockHeader
	for i, f := range fields {
		kind, item, tail, err := rlp.Split(content)
		if err != nil {
			return BlockHeader{}, newFormatError(i, fmt.Sprintf("malformed rlp: %s", err))
		}

		if kind == rlp.List {
			return BlockHeader{}, newFormatError(i, "unexpected nested list")
		}

		if err := f.decode(&h, item); err != nil {
			return BlockHeader{}, newFormatError(i, err.Error())
		}

		content = tail
	}

	return h, nil
}

// EncodeHex returns the encoded header as a 0x prefixed lowercase hex string.
// This is the form the ethash relayer accepts on its command line.
func EncodeHex(h BlockHeader) (string, error) {
	data, err := Encode(h)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(data), nil
}

// DecodeHex decodes a hex string, with or without the 0x prefix, holding an
// RLP encoded header.
func DecodeHex(s string) (BlockHeader, error) {
	s = strings.TrimSpace(s)
	if !has0xPrefix(s) {
		s = "0x" + s
	}

	data, err := hexutil.Decode(s)
	if err != nil {
		return BlockHeader{}, newFormatError(-1, fmt.Sprintf("invalid hex: %s", err))
	}

	return Decode(data)
}

// Hash returns the Keccak-256 hash of the canonical encoding. For headers
// without post London fields this is the block hash reported by the node.
func Hash(h BlockHeader) (common.Hash, error) {
	data, err := Encode(h)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(data), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
