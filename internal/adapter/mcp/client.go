// Package mcp implements the graph search port over the Model Context
// Protocol. The external people-graph service exposes its search and
// profile tools as an MCP server; this adapter owns the session and
// translates tool results into entity ids.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpprotocol "github.com/mark3labs/mcp-go/mcp"
	"github.com/sethvargo/go-retry"

	"github.com/connecthq/connect-core/internal/domain/query"
	"github.com/connecthq/connect-core/internal/port/graphsearch"
)

// fetchTool returns the full raw record for one person.
const fetchTool = "get_person_complete_profile"

// Client is an MCP session against the people-graph service. It
// implements graphsearch.Searcher.
type Client struct {
	client  mcpclient.MCPClient
	timeout time.Duration
}

// Config describes how to reach the graph MCP server.
type Config struct {
	URL       string
	Transport string // "http" | "sse"
	Timeout   time.Duration
}

// Connect creates the MCP client and performs the Initialize handshake,
// retrying with backoff so the service survives the graph server
// starting after it does.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	var mc mcpclient.MCPClient
	var err error

	switch cfg.Transport {
	case "sse":
		mc, err = mcpclient.NewSSEMCPClient(cfg.URL)
	case "http", "":
		mc, err = mcpclient.NewStreamableHttpClient(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported graph transport: %s", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp client: %w", err)
	}

	initReq := mcpprotocol.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpprotocol.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpprotocol.Implementation{
		Name:    "connect-core",
		Version: "1.0.0",
	}

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := mc.Initialize(ctx, initReq)
		if err != nil {
			slog.Warn("mcp initialize failed, retrying", "url", cfg.URL, "error", err)
			return retry.RetryableError(err)
		}
		slog.Info("graph service connected",
			"server", res.ServerInfo.Name,
			"version", res.ServerInfo.Version)
		return nil
	})
	if err != nil {
		_ = mc.Close()
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}

	return &Client{client: mc, timeout: cfg.Timeout}, nil
}

// Invoke calls the named search tool and extracts the matching entity ids
// from its JSON response.
func (c *Client) Invoke(ctx context.Context, tool string, params map[string]any) (*graphsearch.SearchResult, error) {
	text, err := c.callTool(ctx, tool, params)
	if err != nil {
		return nil, err
	}

	ids, err := extractEntityIDs(text)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", tool, err)
	}
	return &graphsearch.SearchResult{EntityIDs: ids, RawText: text}, nil
}

// Fetch retrieves the full raw record for one entity id. The response is
// returned unparsed; profile deserialization happens in the service layer.
func (c *Client) Fetch(ctx context.Context, id query.EntityID) (*graphsearch.FetchResult, error) {
	text, err := c.callTool(ctx, fetchTool, map[string]any{"person_id": id})
	if err != nil {
		return nil, err
	}
	return &graphsearch.FetchResult{EntityID: id, RawText: text}, nil
}

// Close shuts down the MCP session.
func (c *Client) Close() error {
	return c.client.Close()
}

// callTool performs one tools/call and concatenates the text content of
// the result.
func (c *Client) callTool(ctx context.Context, tool string, params map[string]any) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := mcpprotocol.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = params

	res, err := c.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", tool, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(mcpprotocol.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	text := sb.String()

	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", tool, text)
	}
	return text, nil
}

// extractEntityIDs pulls person ids out of a search tool response. The
// graph service returns either a bare id array, an array of person
// objects, or an object wrapping such an array under a well-known key.
func extractEntityIDs(text string) ([]query.EntityID, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var root any
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return idsFromValue(root), nil
}

// wrapperKeys are the envelope fields the graph service nests result
// arrays under, in lookup order.
var wrapperKeys = []string{"person_ids", "people", "results", "data", "matches"}

func idsFromValue(v any) []query.EntityID {
	switch val := v.(type) {
	case []any:
		ids := make([]query.EntityID, 0, len(val))
		for _, item := range val {
			switch entry := item.(type) {
			case float64:
				ids = append(ids, query.EntityID(entry))
			case map[string]any:
				if id, ok := personID(entry); ok {
					ids = append(ids, id)
				}
			}
		}
		return ids
	case map[string]any:
		for _, key := range wrapperKeys {
			if inner, ok := val[key]; ok {
				return idsFromValue(inner)
			}
		}
		// A single person object is a one-element result.
		if id, ok := personID(val); ok {
			return []query.EntityID{id}
		}
		return nil
	default:
		return nil
	}
}

func personID(obj map[string]any) (query.EntityID, bool) {
	for _, key := range []string{"person_id", "id"} {
		if raw, ok := obj[key].(float64); ok {
			return query.EntityID(raw), true
		}
	}
	return 0, false
}
