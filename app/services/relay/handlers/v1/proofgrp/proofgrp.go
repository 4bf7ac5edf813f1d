// Package proofgrp maintains the group of handlers for header and proof access.
package proofgrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ethrelay/business/sys/validate"
	v1 "github.com/ardanlabs/ethrelay/business/web/v1"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethrpc"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/relay"
	"github.com/ardanlabs/ethrelay/foundation/events"
	"github.com/ardanlabs/ethrelay/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of relay endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	Relay *relay.Relay
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide relay events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitHeader decodes an RLP encoded header and returns the proof stored
// for its block, if any.
func (h Handlers) SubmitHeader(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var sh SubmitHeader
	if err := web.Decode(r, &sh); err != nil {
		return v1.NewRequestError(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(sh); err != nil {
		return fmt.Errorf("validating data: %w", err)
	}

	blkHeader, err := header.DecodeHex(sh.Header)
	if err != nil {
		if header.IsFormatError(err) {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		return err
	}

	hash, err := header.Hash(blkHeader)
	if err != nil {
		return err
	}

	rlpHex, err := header.EncodeHex(blkHeader)
	if err != nil {
		return err
	}

	h.Log.Infow("submit header", "traceid", v.TraceID, "number", blkHeader.Number, "hash", hash)

	resp := Proof{
		Number: blkHeader.Number.String(),
		Hash:   hash.Hex(),
		RLP:    rlpHex,
	}

	if blkHeader.Number.IsUint64() {
		proof, err := h.Relay.Proof(blkHeader.Number.Uint64())
		switch {
		case err == nil:
			resp.Proof = proof
		case !errors.Is(err, checkpoint.ErrNotFound):
			return err
		}
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// QueryProof returns the proof stored for the specified block.
func (h Handlers) QueryProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := parseNumber(web.Param(r, "number"))
	if err != nil {
		return err
	}

	proof, err := h.Relay.Proof(num)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return v1.NewRequestError(fmt.Errorf("no proof for block %d", num), http.StatusNotFound)
		}
		return err
	}

	resp := StoredProof{
		Number: num,
		Proof:  proof,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the progress of the relay.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := h.Relay.Status()

	resp := Status{
		Head:           status.Head,
		Epoch:          status.Epoch,
		NextBlock:      status.NextBlock,
		NextEpochBlock: status.NextEpochBlock,
		Proofs:         status.Proofs,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// QueryHeader fetches the specified block header from the node and returns
// it with its RLP encoding.
func (h Handlers) QueryHeader(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := parseNumber(web.Param(r, "number"))
	if err != nil {
		return err
	}

	blk, err := h.Relay.EncodeBlock(ctx, num)
	if err != nil {
		switch {
		case errors.Is(err, ethrpc.ErrBlockNotFound):
			return v1.NewRequestError(fmt.Errorf("block %d not found", num), http.StatusNotFound)
		case header.IsFormatError(err):
			return v1.NewRequestError(err, http.StatusBadGateway)
		}
		return err
	}

	// The header carries the hash as the node reported it.
	raw := header.ToRaw(blk.Header)
	if blk.Reported != (common.Hash{}) {
		raw.Hash = blk.Reported.Hex()
	}

	resp := Block{
		Header:       raw,
		RLP:          blk.RLP,
		Hash:         blk.Hash.Hex(),
		ReportedHash: blk.Reported.Hex(),
		HashMatches:  blk.Hash == blk.Reported,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// parseNumber converts the block number route parameter.
func parseNumber(s string) (uint64, error) {
	num, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, v1.NewRequestError(fmt.Errorf("invalid block number %q", s), http.StatusBadRequest)
	}
	return num, nil
}
