// Package backend is the narrow HTTP client this gateway uses to reach the
// back end: authenticated login and offset/limit CQL search, plus the
// back-end error decoding rules both calls need.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	json "github.com/z2folio/gateway/libaf/json"
)

// Client issues authenticated JSON/HTTP calls against one tenant's back end.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client. If httpClient is nil, http.DefaultClient is used.
// If logger is nil, a no-op logger is used.
func New(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// Instance is one opaque bibliographic instance document returned by search.
// Its shape is not interpreted by this package; xmlrecord renders it later.
type Instance = map[string]any

// SearchResult is the decoded response body of a search call.
type SearchResult struct {
	TotalRecords int        `json:"totalRecords"`
	Instances    []Instance `json:"instances"`
}

func setCommonHeaders(req *http.Request, tenant string) {
	req.Header.Set("X-Okapi-tenant", tenant)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// Login authenticates against {baseURL}/bl-users/login and returns the
// X-Okapi-token issued in response. On an HTTP failure it returns an error
// whose message is the decoded back-end error body (see DecodeError).
func (c *Client) Login(ctx context.Context, baseURL, tenant, username, password string) (string, error) {
	body, err := json.Marshal(struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password})
	if err != nil {
		return "", fmt.Errorf("marshalling login body: %w", err)
	}

	loginURL := strings.TrimRight(baseURL, "/") + "/bl-users/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	setCommonHeaders(req, tenant)

	c.logger.Debug("back end login", zap.String("url", loginURL), zap.String("tenant", tenant), zap.String("username", username))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", DecodeError(resp)
	}

	token := resp.Header.Get("X-Okapi-token")
	if token == "" {
		return "", fmt.Errorf("login succeeded but response carried no X-Okapi-token")
	}
	return token, nil
}

// Search issues GET {baseURL}/inventory/instances?offset=&limit=&query=
// with the tenant and token headers, and decodes the instance list.
func (c *Client) Search(ctx context.Context, baseURL, tenant, token, cql string, offset, limit int) (*SearchResult, error) {
	searchURL := strings.TrimRight(baseURL, "/") + "/inventory/instances?" + url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
		"query":  {cql},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	setCommonHeaders(req, tenant)
	if token != "" {
		req.Header.Set("X-Okapi-token", token)
	}

	c.logger.Debug("back end search", zap.String("tenant", tenant), zap.String("cql", cql), zap.Int("offset", offset), zap.Int("limit", limit))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search failed: %w", DecodeError(resp))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	var result SearchResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return &result, nil
}

// DecodeError extracts a human-readable message from a failed back-end HTTP
// response: a JSON body is parsed for "errorMessage"; anything else is
// returned verbatim.
func DecodeError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status %d: reading error body: %w", resp.StatusCode, err)
	}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var decoded struct {
			ErrorMessage string `json:"errorMessage"`
		}
		if err := json.Unmarshal(body, &decoded); err == nil && decoded.ErrorMessage != "" {
			return fmt.Errorf("%s", decoded.ErrorMessage)
		}
	}
	if trimmed == "" {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("%s", trimmed)
}
