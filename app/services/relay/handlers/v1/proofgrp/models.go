package proofgrp

import (
	"encoding/json"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
)

// SubmitHeader is what we require from clients asking for the proof of
// an RLP encoded header.
type SubmitHeader struct {
	Header string `json:"header" validate:"required,hexadecimal"`
}

// Proof is what the relay knows about a submitted header.
type Proof struct {
	Number string          `json:"number"`
	Hash   string          `json:"hash"`
	RLP    string          `json:"rlp"`
	Proof  json.RawMessage `json:"proof"`
}

// StoredProof is a proof kept by the relay.
type StoredProof struct {
	Number uint64          `json:"number"`
	Proof  json.RawMessage `json:"proof"`
}

// Status is the progress of the relay.
type Status struct {
	Head           uint64 `json:"head"`
	Epoch          uint64 `json:"epoch"`
	NextBlock      uint64 `json:"nextBlock"`
	NextEpochBlock uint64 `json:"nextEpochBlock"`
	Proofs         int    `json:"proofs"`
}

// Block is a header fetched from the node.
type Block struct {
	Header       header.Raw `json:"header"`
	RLP          string     `json:"rlp"`
	Hash         string     `json:"hash"`
	ReportedHash string     `json:"reportedHash"`
	HashMatches  bool       `json:"hashMatches"`
}
