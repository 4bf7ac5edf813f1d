// Package ethrpc provides access to the block data of an Ethereum node over
// JSON-RPC.
package ethrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/header"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrBlockNotFound is returned when the node doesn't know the block.
var ErrBlockNotFound = errors.New("block not found")

// Client represents a connection to a node.
type Client struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

// Dial connects to the node at the specified url. Any transport supported by
// the go-ethereum rpc package can be used.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	return NewClient(c), nil
}

// NewClient constructs a client using an existing rpc connection.
func NewClient(c *rpc.Client) *Client {
	return &Client{
		rpc: c,
		eth: ethclient.NewClient(c),
	}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}

// BlockNumber returns the number of the most recent block.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	num, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}

	return num, nil
}

// RawBlock returns the header fields of the specified block the way the node
// reported them.
func (c *Client) RawBlock(ctx context.Context, number uint64) (header.Raw, error) {
	var raw *header.Raw
	if err := c.rpc.CallContext(ctx, &raw, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false); err != nil {
		return header.Raw{}, fmt.Errorf("eth_getBlockByNumber[%d]: %w", number, err)
	}

	if raw == nil {
		return header.Raw{}, ErrBlockNotFound
	}

	return *raw, nil
}

// Header returns the normalized header of the specified block along with the
// block hash reported by the node.
func (c *Client) Header(ctx context.Context, number uint64) (header.BlockHeader, common.Hash, error) {
	raw, err := c.RawBlock(ctx, number)
	if err != nil {
		return header.BlockHeader{}, common.Hash{}, err
	}

	h, err := header.Parse(raw)
	if err != nil {
		return header.BlockHeader{}, common.Hash{}, fmt.Errorf("block %d: %w", number, err)
	}

	return h, common.HexToHash(raw.Hash), nil
}
