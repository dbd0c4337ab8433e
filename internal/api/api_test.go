package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/media"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	auth    *auth.Service
	cfg     *config.Config
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Env: "test",
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			SessionTTL: time.Hour,
			CookieName: "token",
		},
		Upload: config.UploadConfig{
			ImageHost:  "disk",
			MaxBytes:   1024,
			Dir:        t.TempDir(),
			PublicBase: "/uploads",
		},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Log:       config.LogConfig{Level: "error", Format: "json"},
	}
	for _, fn := range mutate {
		fn(cfg)
	}

	st := memory.New()
	m := metrics.New()
	authSvc := auth.NewService(st, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL), nil, m)

	uploader, err := media.NewDiskUploader(cfg.Upload.Dir, cfg.Upload.PublicBase)
	require.NoError(t, err)

	srv := NewServer(Deps{
		Config:  cfg,
		Logger:  logging.NewWithOutput(cfg.Log, io.Discard),
		Metrics: m,
		Auth:    authSvc,
		Catalog: catalog.NewService(st),
		Cart:    cart.NewService(st, st, m),
		Media:   media.NewService(uploader, cfg.Upload.MaxBytes),
	})

	return &testEnv{handler: srv.Handler(), store: st, auth: authSvc, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec, _ := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == e.cfg.Auth.CookieName {
			return c.Value
		}
	}
	t.Fatal("login did not set a session cookie")
	return ""
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) (string, string) {
	t.Helper()

	email := username + "@example.com"
	rec, _ := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	token := e.login(t, email, "hunter22")
	_, body := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
	user := body["user"].(map[string]interface{})
	return token, user["id"].(string)
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	require.NoError(t, e.auth.EnsureAdmin(context.Background(), "admin", "admin@example.com", "adminpass"))
	return e.login(t, "admin@example.com", "adminpass")
}

func (e *testEnv) addProduct(t *testing.T, title, category, price string) models.Product {
	t.Helper()
	p := models.Product{
		ID:         uuid.NewString(),
		Title:      title,
		Category:   category,
		Brand:      "nike",
		Price:      decimal.RequireFromString(price),
		TotalStock: 5,
	}
	require.NoError(t, e.store.CreateProduct(context.Background(), &p))
	return p
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "jane", "email": "jane@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])

	rec, body = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "other", "email": "JANE@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "user with this email already exists", body["message"])

	rec, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", body["message"])

	rec, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "jane", user["username"])
	assert.NotContains(t, user, "passwordHash")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	meRec := httptest.NewRecorder()
	env.handler.ServeHTTP(meRec, req)
	assert.Equal(t, http.StatusOK, meRec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestMeRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized user", body["message"])

	rec, _ = env.do(t, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShopProductsFilterAndSort(t *testing.T) {
	env := newTestEnv(t)
	env.addProduct(t, "Shirt", "men", "10")
	env.addProduct(t, "Dress", "women", "40")
	env.addProduct(t, "Toy", "kids", "5")

	rec, body := env.do(t, http.MethodGet, "/api/shop/products?category=men,women&sortBy=price-hightolow", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	products := body["products"].([]interface{})
	require.Len(t, products, 2)
	assert.Equal(t, "Dress", products[0].(map[string]interface{})["title"])

	rec, body = env.do(t, http.MethodPost, "/api/shop/products", "", map[string]interface{}{
		"category": []string{"kids"},
		"sortBy":   "bogus",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["products"], 1)

	rec, body = env.do(t, http.MethodGet, "/api/shop/products?brand=unknown", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, body["products"])
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(t, "Shirt", "men", "10")

	rec, body := env.do(t, http.MethodGet, "/api/shop/products/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Shirt", body["data"].(map[string]interface{})["title"])

	rec, _ = env.do(t, http.MethodGet, "/api/shop/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/shop/products/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerAndLogin(t, "jane")
	p := env.addProduct(t, "Shirt", "men", "10")

	rec, body := env.do(t, http.MethodPost, "/api/shop/cart/add", token, map[string]interface{}{
		"userId": userID, "productId": p.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cartBody := body["cart"].(map[string]interface{})
	assert.Equal(t, float64(1), cartBody["totalItems"])

	rec, _ = env.do(t, http.MethodPost, "/api/shop/cart/add", token, map[string]interface{}{
		"productId": p.ID, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/shop/cart/"+userID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cartBody = body["cart"].(map[string]interface{})
	assert.Equal(t, float64(3), cartBody["totalItems"])
	assert.Equal(t, "30", cartBody["total"])

	rec, _ = env.do(t, http.MethodPut, "/api/shop/cart/update", token, map[string]interface{}{
		"userId": userID, "productId": p.ID, "quantity": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodDelete, "/api/shop/cart/"+userID+"/"+p.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["cart"].(map[string]interface{})["items"])

	rec, body = env.do(t, http.MethodDelete, "/api/shop/cart/clear", token, map[string]string{"userId": userID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["cart"].(map[string]interface{})["totalItems"])
}

func TestCartOwnership(t *testing.T) {
	env := newTestEnv(t)
	janeToken, janeID := env.registerAndLogin(t, "jane")
	bobToken, _ := env.registerAndLogin(t, "bob")
	p := env.addProduct(t, "Shirt", "men", "10")

	rec, _ := env.do(t, http.MethodPost, "/api/shop/cart/add", janeToken, map[string]interface{}{"productId": p.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(t, http.MethodGet, "/api/shop/cart/"+janeID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access denied", body["message"])

	rec, _ = env.do(t, http.MethodGet, "/api/shop/cart/"+janeID, env.adminToken(t), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/shop/cart/"+janeID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartNotFound(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.registerAndLogin(t, "jane")

	rec, body := env.do(t, http.MethodGet, "/api/shop/cart/"+userID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "cart not found", body["message"])

	rec, _ = env.do(t, http.MethodPost, "/api/shop/cart/add", token, map[string]interface{}{"productId": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartForUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	p := env.addProduct(t, "Shirt", "men", "10")
	ghost := uuid.NewString()
	admin := env.adminToken(t)

	rec, body := env.do(t, http.MethodPost, "/api/shop/cart/add", admin, map[string]interface{}{
		"userId": ghost, "productId": p.ID,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user not found", body["message"])

	rec, _ = env.do(t, http.MethodGet, "/api/shop/cart/"+ghost, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartQuantityBound(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t, "jane")
	p := env.addProduct(t, "Shirt", "men", "10")

	rec, body := env.do(t, http.MethodPost, "/api/shop/cart/add", token, map[string]interface{}{
		"productId": p.ID, "quantity": math.MaxInt64,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestAdminRequiresRole(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerAndLogin(t, "jane")

	rec, _ := env.do(t, http.MethodGet, "/api/admin/products", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/admin/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminProductCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	rec, body := env.do(t, http.MethodPost, "/api/admin/products/add", token, map[string]interface{}{
		"title": "Jacket", "category": "men", "brand": "nike", "price": 80, "totalStock": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	product := body["product"].(map[string]interface{})
	id := product["id"].(string)

	rec, body = env.do(t, http.MethodPost, "/api/admin/products/add", token, map[string]interface{}{
		"title": "Broken", "price": 0, "totalStock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, body = env.do(t, http.MethodPut, "/api/admin/products/"+id, token, map[string]interface{}{"sellPrice": 60})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jacket", body["data"].(map[string]interface{})["title"])

	rec, body = env.do(t, http.MethodGet, "/api/admin/products?page=1&limit=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["totalCount"])
	assert.Equal(t, float64(5), body["limit"])

	rec, body = env.do(t, http.MethodGet, "/api/admin/products?limit=500", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(100), body["limit"])

	rec, _ = env.do(t, http.MethodDelete, "/api/admin/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/admin/products/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func uploadRequest(t *testing.T, token, field string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products/upload-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, token, "file", pngHeader))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Success bool `json:"success"`
		Result  struct {
			URL string `json:"url"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, strings.HasPrefix(body.Result.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(body.Result.URL, ".png"))

	served := httptest.NewRecorder()
	env.handler.ServeHTTP(served, httptest.NewRequest(http.MethodGet, body.Result.URL, nil))
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngHeader, served.Body.Bytes())
}

func TestUploadImageRejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, token, "file", []byte("just some text")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	oversize := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, token, "file", oversize))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, token, "other", pngHeader))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file uploaded")
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})

	creds := map[string]string{"email": "nobody@example.com", "password": "x"}
	rec, _ := env.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])

	rec, _ = env.do(t, http.MethodPatch, "/api/shop/products", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/shop/cart/add", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/shop/cart/add", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTraceIDAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(traceHeader, "trace-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-123", rec.Header().Get(traceHeader))

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "boom")
}
