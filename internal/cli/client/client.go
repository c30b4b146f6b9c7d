package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is an HTTP client for the Stockd API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the given server address.
func New(serverAddr string) *Client {
	// Assume HTTPS by default (the reverse proxy serves on 443)
	baseURL := fmt.Sprintf("https://%s", serverAddr)

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Skip TLS verification for self-signed certificates
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			},
		},
	}
}

// SetHTTPClient sets a custom HTTP client.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetBaseURL overrides the computed base URL (used by tests to point
// at a plain-HTTP server).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// User represents the signed-in user as returned by the API.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Session carries the token pair issued by login or refresh. User is
// nil on refresh responses.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// Site represents a stock location.
type Site struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Article represents a stocked item at a site.
type Article struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	SiteID      string `json:"site_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
	Site        *Site  `json:"site,omitempty"`
}

// Movement represents a recorded stock change.
type Movement struct {
	ID        string   `json:"id"`
	ArticleID string   `json:"article_id"`
	Type      string   `json:"type"`
	Quantity  int      `json:"quantity"`
	ToSiteID  string   `json:"to_site_id"`
	Reason    string   `json:"reason"`
	CreatedAt string   `json:"created_at"`
	Article   *Article `json:"article,omitempty"`
}

// Alert represents a low-stock or out-of-stock alert.
type Alert struct {
	ID             string   `json:"id"`
	ArticleID      string   `json:"article_id"`
	Level          string   `json:"level"`
	AcknowledgedAt *string  `json:"acknowledged_at"`
	CreatedAt      string   `json:"created_at"`
	Article        *Article `json:"article,omitempty"`
}

// Stats represents the dashboard counters.
type Stats struct {
	Articles       int64 `json:"articles"`
	Sites          int64 `json:"sites"`
	OpenAlerts     int64 `json:"open_alerts"`
	MovementsToday int64 `json:"movements_today"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// CreateMovementRequest is the request body for recording a movement.
type CreateMovementRequest struct {
	ArticleID string `json:"article_id"`
	Type      string `json:"type"`
	Quantity  int    `json:"quantity"`
	ToSiteID  string `json:"to_site_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Login authenticates with email and password and returns the issued
// token pair. On a 401 the error carries the server's message, so it
// can be shown to the user as-is.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", loginRequest{
		Email:    email,
		Password: password,
	}, &sess, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Refresh exchanges a refresh credential for a new token pair. The
// presented credential is single-use; callers must store the returned
// one.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", "", refreshRequest{
		RefreshToken: refreshToken,
	}, &sess, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Me returns the currently authenticated user.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", accessToken, nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the refresh credential server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", "", refreshRequest{
		RefreshToken: refreshToken,
	}, nil, http.StatusNoContent)
}

// ListSites returns all sites.
func (c *Client) ListSites(ctx context.Context, accessToken string) ([]Site, error) {
	var sites []Site
	if err := c.do(ctx, http.MethodGet, "/api/sites", accessToken, nil, &sites, http.StatusOK); err != nil {
		return nil, err
	}
	return sites, nil
}

// ListArticles returns articles, optionally filtered by site and low
// stock.
func (c *Client) ListArticles(ctx context.Context, accessToken, siteID string, lowOnly bool) ([]Article, error) {
	query := url.Values{}
	if siteID != "" {
		query.Set("site_id", siteID)
	}
	if lowOnly {
		query.Set("low", "true")
	}
	path := "/api/articles"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var articles []Article
	if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &articles, http.StatusOK); err != nil {
		return nil, err
	}
	return articles, nil
}

// CreateMovement records a stock movement.
func (c *Client) CreateMovement(ctx context.Context, accessToken string, req CreateMovementRequest) (*Movement, error) {
	var mv Movement
	if err := c.do(ctx, http.MethodPost, "/api/movements", accessToken, req, &mv, http.StatusCreated); err != nil {
		return nil, err
	}
	return &mv, nil
}

// ListAlerts returns open alerts, or all alerts when includeResolved
// is set.
func (c *Client) ListAlerts(ctx context.Context, accessToken string, includeResolved bool) ([]Alert, error) {
	path := "/api/alerts"
	if includeResolved {
		path += "?all=true"
	}

	var alerts []Alert
	if err := c.do(ctx, http.MethodGet, path, accessToken, nil, &alerts, http.StatusOK); err != nil {
		return nil, err
	}
	return alerts, nil
}

// AcknowledgeAlert marks an open alert as seen.
func (c *Client) AcknowledgeAlert(ctx context.Context, accessToken, alertID string) error {
	path := fmt.Sprintf("/api/alerts/%s/acknowledge", alertID)
	return c.do(ctx, http.MethodPost, path, accessToken, nil, nil, http.StatusOK)
}

// GetStats returns the dashboard counters.
func (c *Client) GetStats(ctx context.Context, accessToken string) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, "/api/system/stats", accessToken, nil, &stats, http.StatusOK); err != nil {
		return nil, err
	}
	return &stats, nil
}

// do sends a JSON request and decodes the response into out when the
// status matches wantStatus. Other statuses become an error carrying
// the server's message.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any, wantStatus int) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return errors.New(serverError(resp))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// serverError extracts the "error" field from an error response,
// falling back to a generic message with the status code.
func serverError(resp *http.Response) string {
	data, _ := io.ReadAll(resp.Body)

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "Invalid credentials"
	}
	return fmt.Sprintf("request failed (status %d)", resp.StatusCode)
}
