// Package gateway reaches a remote anchorage server over HTTP and exposes it
// through the store contracts, so the registries can run against either a
// local backend or a remote one.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/anchorage/internal/envelope"
	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/store"
)

var (
	_ store.AnchorStore = (*Client)(nil)
	_ store.LinkStore   = (*Client)(nil)
	_ store.NodeReader  = (*Client)(nil)
)

// Client talks to the REST API under <base>/api. Calls are never retried.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/") + "/api",
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateAnchor implements store.AnchorStore.
func (c *Client) CreateAnchor(ctx context.Context, a models.Anchor) (models.Anchor, error) {
	var out models.Anchor
	return out, c.do(ctx, http.MethodPost, "/anchors", a, &out)
}

// GetAnchor implements store.AnchorStore.
func (c *Client) GetAnchor(ctx context.Context, anchorID string) (models.Anchor, error) {
	var out models.Anchor
	return out, c.do(ctx, http.MethodGet, "/anchors/"+url.PathEscape(anchorID), nil, &out)
}

// GetAnchorsByNodeID implements store.AnchorStore.
func (c *Client) GetAnchorsByNodeID(ctx context.Context, nodeID string) ([]models.Anchor, error) {
	var out []models.Anchor
	return out, c.do(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID)+"/anchors", nil, &out)
}

// UpdateExtent implements store.AnchorStore.
func (c *Client) UpdateExtent(ctx context.Context, anchorID string, e extent.Extent) (models.Anchor, error) {
	var out models.Anchor
	body := struct {
		Extent extent.Value `json:"extent"`
	}{extent.Of(e)}
	return out, c.do(ctx, http.MethodPut, "/anchors/"+url.PathEscape(anchorID)+"/extent", body, &out)
}

// DeleteAnchor implements store.AnchorStore.
func (c *Client) DeleteAnchor(ctx context.Context, anchorID string) error {
	return c.do(ctx, http.MethodDelete, "/anchors/"+url.PathEscape(anchorID), nil, nil)
}

// CreateLink implements store.LinkStore.
func (c *Client) CreateLink(ctx context.Context, l models.Link) (models.Link, error) {
	var out models.Link
	return out, c.do(ctx, http.MethodPost, "/links", l, &out)
}

// GetLink implements store.LinkStore.
func (c *Client) GetLink(ctx context.Context, linkID string) (models.Link, error) {
	var out models.Link
	return out, c.do(ctx, http.MethodGet, "/links/"+url.PathEscape(linkID), nil, &out)
}

// GetLinksByAnchorID implements store.LinkStore.
func (c *Client) GetLinksByAnchorID(ctx context.Context, anchorID string) ([]models.Link, error) {
	var out []models.Link
	return out, c.do(ctx, http.MethodGet, "/anchors/"+url.PathEscape(anchorID)+"/links", nil, &out)
}

// DeleteLink implements store.LinkStore. The server applies anchor cleanup.
func (c *Client) DeleteLink(ctx context.Context, linkID string) error {
	return c.do(ctx, http.MethodDelete, "/links/"+url.PathEscape(linkID), nil, nil)
}

// DeleteLinks implements store.LinkStore.
func (c *Client) DeleteLinks(ctx context.Context, linkIDs []string) error {
	body := struct {
		LinkIDs []string `json:"linkIds"`
	}{linkIDs}
	return c.do(ctx, http.MethodPost, "/links/delete", body, nil)
}

// GetNode implements store.NodeReader.
func (c *Client) GetNode(ctx context.Context, nodeID string) (models.Node, error) {
	var out models.Node
	return out, c.do(ctx, http.MethodGet, "/nodes/"+url.PathEscape(nodeID), nil, &out)
}

// do sends body as JSON and decodes the envelope payload into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var res envelope.Result[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return fmt.Errorf("gateway: %s %s: status %d: undecodable response: %w", method, path, resp.StatusCode, err)
	}
	if err := res.Err(); err != nil {
		return err
	}
	if out == nil || len(res.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Payload, out); err != nil {
		return fmt.Errorf("gateway: decode %s %s: %w", method, path, err)
	}
	return nil
}
