package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/weaveget/weaveget/internal/utils"
)

const DefaultGatewayURL = "https://arweave.net"

// Client talks to a single gateway. It performs no retries; retry and backoff
// policy belongs to the caller.
type Client struct {
	baseURL string
	httpc   utils.HTTPDoer
}

func NewClient(gatewayURL string, cfg utils.HTTPClientConfig) *Client {
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}
	return &Client{
		baseURL: strings.TrimRight(gatewayURL, "/"),
		httpc:   utils.NewWeaveHTTPClient(cfg),
	}
}

// TxOffset fetches size/offset metadata for a transaction. Any non-2xx status
// fails with MetadataFetchError.
func (c *Client) TxOffset(ctx context.Context, id string) (*TxOffset, error) {
	log := utils.GetLogger("gateway")
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/tx/%s/offset", c.baseURL, id), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating offset request: %v", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching offset metadata: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &MetadataFetchError{ID: id, StatusCode: resp.StatusCode}
	}
	var raw txOffsetResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error decoding offset response: %v", err)
	}
	size, ok := new(big.Int).SetString(raw.Size, 10)
	if !ok {
		return nil, fmt.Errorf("invalid size in offset response: %q", raw.Size)
	}
	offset, ok := new(big.Int).SetString(raw.Offset, 10)
	if !ok {
		return nil, fmt.Errorf("invalid offset in offset response: %q", raw.Offset)
	}
	log.Debug().Str("tx", id).Str("size", size.String()).Str("offset", offset.String()).Msg("Fetched offset metadata")
	return &TxOffset{Size: size, Offset: offset}, nil
}

// Chunk fetches the chunk containing the given absolute weave offset. The
// chunk payload is base64url decoded; data_path and tx_path come back as-is.
// Any non-2xx status fails with ChunkFetchError.
func (c *Client) Chunk(ctx context.Context, offset *big.Int) (*Chunk, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/chunk/%s", c.baseURL, offset.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating chunk request: %v", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching chunk at offset %s: %v", offset, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ChunkFetchError{Offset: new(big.Int).Set(offset), StatusCode: resp.StatusCode}
	}
	var raw chunkResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error decoding chunk response: %v", err)
	}
	data, err := base64.RawURLEncoding.DecodeString(raw.Chunk)
	if err != nil {
		return nil, fmt.Errorf("error decoding chunk payload: %v", err)
	}
	return &Chunk{
		Data:     data,
		DataPath: raw.DataPath,
		TxPath:   raw.TxPath,
	}, nil
}
