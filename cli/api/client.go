// Package api is the HTTP client the medmarket CLI uses to talk to a node.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medmarket/core/catalog"
	"medmarket/core/ledger"
	"medmarket/core/session"
	"medmarket/core/txlog"
)

// DefaultBaseURL is the address of a locally running node.
const DefaultBaseURL = "http://localhost:8080"

// Client calls the node's JSON API. Token, when set, is sent as a bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL with a request timeout.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the node.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// do sends body as JSON and decodes the response into out. A non-2xx status
// yields an *APIError carrying the node's error message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// SessionResponse is returned by login, register and profile updates.
type SessionResponse struct {
	OK           bool          `json:"ok"`
	User         *session.User `json:"user"`
	Token        string        `json:"token"`
	IsPatient    bool          `json:"isPatient"`
	IsResearcher bool          `json:"isResearcher"`
}

func (c *Client) Login(ctx context.Context, email, password string) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/session/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, req session.RegisterRequest) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/session/register", req, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/session/logout", nil, nil)
}

func (c *Client) Session(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &out)
	return out, err
}

func (c *Client) Wallet(ctx context.Context) (ledger.Snapshot, error) {
	var out ledger.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/wallet", nil, &out)
	return out, err
}

// ConnectWallet asks the node to connect the session wallet.
func (c *Client) ConnectWallet(ctx context.Context) (ledger.Status, error) {
	var out struct {
		ConnectionStatus ledger.Status `json:"connectionStatus"`
	}
	err := c.do(ctx, http.MethodPost, "/api/wallet/connect", nil, &out)
	return out.ConnectionStatus, err
}

// SearchResult is a catalog page plus the known dataset types.
type SearchResult struct {
	catalog.Page
	Types []string `json:"types"`
}

func (c *Client) SearchDatasets(ctx context.Context, q catalog.Query) (SearchResult, error) {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	for _, t := range q.Types {
		v.Add("type", t)
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.MinRating > 0 {
		v.Set("minRating", strconv.FormatFloat(q.MinRating, 'f', -1, 64))
	}
	if q.VerifiedOnly {
		v.Set("verified", "true")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	path := "/api/datasets"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out SearchResult
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) Dataset(ctx context.Context, id string) (catalog.Dataset, error) {
	var out catalog.Dataset
	err := c.do(ctx, http.MethodGet, "/api/datasets/"+url.PathEscape(id), nil, &out)
	return out, err
}

// MyDatasets lists the signed-in patient's listings.
func (c *Client) MyDatasets(ctx context.Context) ([]catalog.Dataset, error) {
	var out struct {
		Datasets []catalog.Dataset `json:"datasets"`
	}
	err := c.do(ctx, http.MethodGet, "/api/datasets/mine", nil, &out)
	return out.Datasets, err
}

func (c *Client) DatasetTransactions(ctx context.Context, id string) ([]txlog.Transaction, error) {
	var out struct {
		Transactions []txlog.Transaction `json:"transactions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/datasets/"+url.PathEscape(id)+"/transactions", nil, &out)
	return out.Transactions, err
}

func (c *Client) Purchase(ctx context.Context, id string) (ledger.PurchaseResult, error) {
	var out ledger.PurchaseResult
	err := c.do(ctx, http.MethodPost, "/api/datasets/"+url.PathEscape(id)+"/purchase", nil, &out)
	return out, err
}

func (c *Client) Verify(ctx context.Context, id string) (ledger.VerifyResult, error) {
	var out ledger.VerifyResult
	err := c.do(ctx, http.MethodPost, "/api/datasets/"+url.PathEscape(id)+"/verify", nil, &out)
	return out, err
}

// Publish uploads a raw listing document.
func (c *Client) Publish(ctx context.Context, listing json.RawMessage) (catalog.Dataset, error) {
	var out catalog.Dataset
	err := c.do(ctx, http.MethodPost, "/api/datasets", listing, &out)
	return out, err
}

func (c *Client) Theme(ctx context.Context) (string, error) {
	var out struct {
		Theme string `json:"theme"`
	}
	err := c.do(ctx, http.MethodGet, "/api/preferences/theme", nil, &out)
	return out.Theme, err
}

func (c *Client) SetTheme(ctx context.Context, theme string) (string, error) {
	var out struct {
		Theme string `json:"theme"`
	}
	err := c.do(ctx, http.MethodPut, "/api/preferences/theme", map[string]string{"theme": theme}, &out)
	return out.Theme, err
}

func (c *Client) ToggleTheme(ctx context.Context) (string, error) {
	var out struct {
		Theme string `json:"theme"`
	}
	err := c.do(ctx, http.MethodPost, "/api/preferences/theme/toggle", nil, &out)
	return out.Theme, err
}
