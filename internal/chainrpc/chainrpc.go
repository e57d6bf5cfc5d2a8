// Package chainrpc is the thin JSON-RPC client the migrator and chain syncer
// use to read chain state: recent blockhashes and raw account data. It wraps
// the same go-ethereum JSON-RPC client internal/bundlesubmitter uses to send
// transactions, so the whole control plane talks to the chain through one
// transport library.
package chainrpc

import (
	"context"
	"encoding/base64"
	"fmt"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/mr-tron/base58"
)

// Client is a read-only JSON-RPC client against a Solana-style validator
// endpoint.
type Client struct {
	rpc *gethrpc.Client
}

// Dial connects to url.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: dial: %w", err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() { c.rpc.Close() }

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// RecentBlockhash fetches the chain's current blockhash for transaction
// construction.
func (c *Client) RecentBlockhash(ctx context.Context) ([32]byte, error) {
	var out latestBlockhashResult
	if err := c.rpc.CallContext(ctx, &out, "getLatestBlockhash"); err != nil {
		return [32]byte{}, fmt.Errorf("chainrpc: getLatestBlockhash: %w", err)
	}
	raw, err := base58.Decode(out.Value.Blockhash)
	if err != nil || len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("chainrpc: malformed blockhash %q", out.Value.Blockhash)
	}
	var bh [32]byte
	copy(bh[:], raw)
	return bh, nil
}

type accountInfoResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *struct {
		Data []string `json:"data"`
	} `json:"value"`
}

// AccountInfo is the decoded result of a getAccountInfo call: the account's
// raw data and the slot the read was served at.
type AccountInfo struct {
	Data []byte
	Slot uint64
}

// GetAccountInfo fetches the raw account data for pubkey (base58-encoded),
// base64-encoded per the "base64" encoding parameter. Returns a nil Data
// slice if the account does not exist yet.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey string) (AccountInfo, error) {
	var out accountInfoResult
	params := map[string]any{"encoding": "base64"}
	if err := c.rpc.CallContext(ctx, &out, "getAccountInfo", pubkey, params); err != nil {
		return AccountInfo{}, fmt.Errorf("chainrpc: getAccountInfo: %w", err)
	}
	if out.Value == nil || len(out.Value.Data) == 0 {
		return AccountInfo{Slot: out.Context.Slot}, nil
	}
	data, err := base64.StdEncoding.DecodeString(out.Value.Data[0])
	if err != nil {
		return AccountInfo{}, fmt.Errorf("chainrpc: decode account data: %w", err)
	}
	return AccountInfo{Data: data, Slot: out.Context.Slot}, nil
}
