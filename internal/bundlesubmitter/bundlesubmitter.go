// Package bundlesubmitter wraps a JSON-RPC connection to a bundle-relay
// endpoint, the migrator's only path onto the chain. It knows nothing about
// transaction contents: Bytes in, status out.
package bundlesubmitter

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Status is a bundle's outcome as reported by the relay.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLanded    Status = "landed"
	StatusFailed    Status = "failed"
	StatusNotFound  Status = "not_found"
)

// Submitter is the migrator's view of a bundle relay or direct RPC
// endpoint: send a signed transaction (alone or as part of a bundle) and
// later poll its landing status.
type Submitter interface {
	SendTransaction(ctx context.Context, signed []byte) (signature string, err error)
	SendBundle(ctx context.Context, signed [][]byte) (bundleID string, err error)
	GetBundleStatuses(ctx context.Context, bundleIDs []string) (map[string]Status, error)
}

// Client is a Submitter backed by a generic JSON-RPC endpoint, grounded on
// go-ethereum's rpc.Client for the transport (dial, call, batch-call) since
// the bundle relay surface this platform targets is itself JSON-RPC over
// HTTP, the same shape go-ethereum's client already speaks.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a bundle relay JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("bundlesubmitter: dial: %w", err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() { c.rpc.Close() }

// SendTransaction submits a single signed transaction directly, bypassing
// bundling, for instructions that do not need atomic co-submission.
func (c *Client) SendTransaction(ctx context.Context, signed []byte) (string, error) {
	var sig string
	if err := c.rpc.CallContext(ctx, &sig, "sendTransaction", base64.StdEncoding.EncodeToString(signed)); err != nil {
		return "", fmt.Errorf("bundlesubmitter: sendTransaction: %w", err)
	}
	return sig, nil
}

// SendBundle submits a set of signed transactions for atomic, ordered
// inclusion, returning the relay's bundle identifier.
func (c *Client) SendBundle(ctx context.Context, signed [][]byte) (string, error) {
	encoded := make([]string, len(signed))
	for i, tx := range signed {
		encoded[i] = base64.StdEncoding.EncodeToString(tx)
	}
	var bundleID string
	if err := c.rpc.CallContext(ctx, &bundleID, "sendBundle", encoded); err != nil {
		return "", fmt.Errorf("bundlesubmitter: sendBundle: %w", err)
	}
	return bundleID, nil
}

// GetBundleStatuses polls the relay for the current landing status of each
// bundle id, batching the request so a confirmation-poll loop costs one
// round trip regardless of how many bundles it is watching.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) (map[string]Status, error) {
	if len(bundleIDs) == 0 {
		return map[string]Status{}, nil
	}
	batch := make([]rpc.BatchElem, len(bundleIDs))
	results := make([]string, len(bundleIDs))
	for i, id := range bundleIDs {
		batch[i] = rpc.BatchElem{
			Method: "getBundleStatuses",
			Args:   []interface{}{id},
			Result: &results[i],
		}
	}
	if err := c.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, fmt.Errorf("bundlesubmitter: getBundleStatuses: %w", err)
	}
	out := make(map[string]Status, len(bundleIDs))
	for i, id := range bundleIDs {
		if batch[i].Error != nil {
			out[id] = StatusNotFound
			continue
		}
		out[id] = Status(results[i])
	}
	return out, nil
}
