package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Quantity is an integer as a node or a user supplies it: a 0x prefixed hex
// string or a decimal string. A bare JSON number is accepted as well.
type Quantity string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	*q = Quantity(n.String())

	return nil
}

// Raw represents the header fields of a JSON-RPC block object before they
// are normalized. The hash is the block hash the node reported and is not
// part of the encoding.
type Raw struct {
	ParentHash       string   `json:"parentHash"`
	UnclesHash       string   `json:"sha3Uncles"`
	Author           string   `json:"miner"`
	StateRoot        string   `json:"stateRoot"`
	TransactionsRoot string   `json:"transactionsRoot"`
	ReceiptsRoot     string   `json:"receiptsRoot"`
	LogBloom         string   `json:"logsBloom"`
	Difficulty       Quantity `json:"difficulty"`
	Number           Quantity `json:"number"`
	GasLimit         Quantity `json:"gasLimit"`
	GasUsed          Quantity `json:"gasUsed"`
	Timestamp        Quantity `json:"timestamp"`
	ExtraData        string   `json:"extraData"`
	MixHash          string   `json:"mixHash"`
	Nonce            string   `json:"nonce"`
	Hash             string   `json:"hash,omitempty"`
}

// Parse normalizes the raw fields into a header. Hex strings may omit the 0x
// prefix and odd length hex is padded with a leading zero. Integers may be
// hex or decimal.
func Parse(raw Raw) (BlockHeader, error) {
	var h BlockHeader
	for i, f := range fields {
		s := strings.TrimSpace(*f.text(&raw))

		if v, ok := f.ref(&h).(**big.Int); ok {
			n, err := parseQuantity(s)
			if err != nil {
				return BlockHeader{}, newFormatError(i, err.Error())
			}
			*v = n
			continue
		}

		b, err := parseHexBytes(s)
		if err != nil {
			return BlockHeader{}, newFormatError(i, err.Error())
		}

		if err := f.decode(&h, b); err != nil {
			return BlockHeader{}, newFormatError(i, err.Error())
		}
	}

	return h, nil
}

// ToRaw renders the header with hex strings for the byte fields and decimal
// strings for the integer fields.
func ToRaw(h BlockHeader) Raw {
	var raw Raw
	for _, f := range fields {
		if v, ok := f.ref(&h).(**big.Int); ok {
			*f.text(&raw) = intValue(*v).String()
			continue
		}
		*f.text(&raw) = hexutil.Encode(f.raw(&h))
	}

	return raw
}

// =============================================================================

// parseHexBytes decodes a hex string padding odd length input to an even
// number of digits.
func parseHexBytes(s string) ([]byte, error) {
	if has0xPrefix(s) {
		s = s[2:]
	}

	if len(s)%2 != 0 {
		s = "0" + s
	}

	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}

	return b, nil
}

// parseQuantity parses a 0x prefixed hex or a decimal integer. Leading zero
// digits are allowed in both forms.
func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing value")
	}

	n := new(big.Int)

	if has0xPrefix(s) {
		digits := s[2:]
		if digits == "" {
			return n, nil
		}
		if _, ok := n.SetString(digits, 16); !ok || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		return n, nil
	}

	if _, ok := n.SetString(s, 10); !ok {
		return nil, fmt.Errorf("invalid decimal quantity %q", s)
	}

	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative quantity %q", s)
	}

	return n, nil
}
