package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"corewatch/internal/models"
)

// APIClient is a thin client for the controller's REST API
type APIClient struct {
	endpoint models.ServerEndpoint
	http     *http.Client
}

// NewAPIClient creates a client for endpoint. insecure disables certificate
// verification for self-signed controllers.
func NewAPIClient(endpoint models.ServerEndpoint, timeout time.Duration, insecure bool) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &APIClient{
		endpoint: endpoint,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Version probes reachability and authentication
func (c *APIClient) Version(ctx context.Context) (models.Version, error) {
	var resp models.Version
	err := c.do(ctx, http.MethodGet, "/version", nil, &resp)
	return resp, err
}

// Connections fetches one full connection snapshot
func (c *APIClient) Connections(ctx context.Context) (models.ConnectionsSnapshot, error) {
	var resp models.ConnectionsSnapshot
	err := c.do(ctx, http.MethodGet, "/connections", nil, &resp)
	return resp, err
}

// CloseConnection closes one connection by id
func (c *APIClient) CloseConnection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/connections/"+url.PathEscape(id), nil, nil)
}

// CloseAllConnections closes every connection
func (c *APIClient) CloseAllConnections(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/connections", nil, nil)
}

// Proxies lists proxies and selector groups
func (c *APIClient) Proxies(ctx context.Context) (models.ProxiesResponse, error) {
	var resp models.ProxiesResponse
	err := c.do(ctx, http.MethodGet, "/proxies", nil, &resp)
	return resp, err
}

// SelectProxy makes name the active proxy of a selector group
func (c *APIClient) SelectProxy(ctx context.Context, group, name string) error {
	body := map[string]string{"name": name}
	return c.do(ctx, http.MethodPut, "/proxies/"+url.PathEscape(group), body, nil)
}

// Rules lists the routing rules
func (c *APIClient) Rules(ctx context.Context) (models.RulesResponse, error) {
	var resp models.RulesResponse
	err := c.do(ctx, http.MethodGet, "/rules", nil, &resp)
	return resp, err
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.BaseURL()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.endpoint.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.endpoint.Secret)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		data, _ := io.ReadAll(res.Body)
		msg := strings.TrimSpace(string(data))
		if msg != "" {
			return fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return fmt.Errorf("request failed: %s", res.Status)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
