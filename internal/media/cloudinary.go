package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const cloudinaryTransformation = "c_limit,h_800,w_800"

type CloudinaryConfig struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
}

// CloudinaryUploader performs signed uploads against the Cloudinary upload API.
type CloudinaryUploader struct {
	cfg        CloudinaryConfig
	httpClient *http.Client
	now        func() time.Time
}

func NewCloudinaryUploader(cfg CloudinaryConfig, httpClient *http.Client) *CloudinaryUploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &CloudinaryUploader{cfg: cfg, httpClient: httpClient, now: time.Now}
}

// sign implements Cloudinary's request signature: the sorted key=value pairs
// joined by '&', followed by the API secret, hashed with SHA-1.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func (u *CloudinaryUploader) Upload(ctx context.Context, img *Image) (string, error) {
	params := map[string]string{
		"timestamp":      strconv.FormatInt(u.now().Unix(), 10),
		"transformation": cloudinaryTransformation,
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"file":           dataURI(img),
		"api_key":        u.cfg.APIKey,
		"timestamp":      params["timestamp"],
		"transformation": params["transformation"],
		"signature":      sign(params, u.cfg.APISecret),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(u.cfg.BaseURL, "/"), u.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("upload image: status %d: %s", resp.StatusCode, msg)
	}

	secureURL := gjson.GetBytes(raw, "secure_url")
	if !secureURL.Exists() || secureURL.String() == "" {
		return "", fmt.Errorf("upload image: response has no secure_url")
	}
	return secureURL.String(), nil
}

func dataURI(img *Image) string {
	return "data:" + img.MIME + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
