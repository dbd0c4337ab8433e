// Package client is a typed HTTP client for the storefront API. The session
// cookie set on login is kept in a cookie jar and sent on later calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 8 << 20
)

// APIError is a non-success response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. A cookie jar is added when
// the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	return c, nil
}

// ProductQuery filters the product listings. Page and Limit only apply to
// the admin listing.
type ProductQuery struct {
	Category []string `json:"category,omitempty"`
	Brand    []string `json:"brand,omitempty"`
	SortBy   string   `json:"sortBy,omitempty"`
	Page     int      `json:"page,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

type cartRequest struct {
	UserID    string `json:"userId,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Quantity  *int   `json:"quantity,omitempty"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the identity of the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Products(ctx context.Context, q ProductQuery) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/shop/products", q, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	return c.product(ctx, "/api/shop/products/"+url.PathEscape(id))
}

func (c *Client) AddToCart(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	return c.cart(ctx, http.MethodPost, "/api/shop/cart/add", cartRequest{UserID: userID, ProductID: productID, Quantity: &quantity})
}

func (c *Client) UpdateCartItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	return c.cart(ctx, http.MethodPut, "/api/shop/cart/update", cartRequest{UserID: userID, ProductID: productID, Quantity: &quantity})
}

func (c *Client) RemoveFromCart(ctx context.Context, userID, productID string) (*Cart, error) {
	path := "/api/shop/cart/" + url.PathEscape(userID) + "/" + url.PathEscape(productID)
	return c.cart(ctx, http.MethodDelete, path, nil)
}

func (c *Client) ClearCart(ctx context.Context, userID string) (*Cart, error) {
	return c.cart(ctx, http.MethodDelete, "/api/shop/cart/clear", cartRequest{UserID: userID})
}

func (c *Client) Cart(ctx context.Context, userID string) (*Cart, error) {
	return c.cart(ctx, http.MethodGet, "/api/shop/cart/"+url.PathEscape(userID), nil)
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var out struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/products/add", in, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

func (c *Client) AdminProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	var out ProductPage
	if err := c.do(ctx, http.MethodPost, "/api/admin/products", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminProduct(ctx context.Context, id string) (*Product, error) {
	return c.product(ctx, "/api/admin/products/"+url.PathEscape(id))
}

func (c *Client) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*Product, error) {
	var out struct {
		Data Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/admin/products/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) (*Product, error) {
	var out struct {
		Data Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/admin/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UploadImage sends the image as multipart field "file" and returns the
// hosted URL.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/products/upload-image", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Result struct {
			URL string `json:"url"`
		} `json:"result"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.Result.URL, nil
}

func (c *Client) product(ctx context.Context, path string) (*Product, error) {
	var out struct {
		Data Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) cart(ctx context.Context, method, path string, body interface{}) (*Cart, error) {
	var out struct {
		Cart Cart `json:"cart"`
	}
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Cart, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

// send executes req and decodes the envelope. Any status of 400 and above
// becomes an *APIError carrying the server's message.
func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &envelope) != nil || envelope.Message == "" {
			envelope.Message = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
