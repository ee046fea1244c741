package blobstore

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
)

// Client — HTTP-клиент шлюза хранилища. Запросы подписываются HMAC-SHA256
// по секретному ключу, ключ доступа передаётся в заголовке.
type Client struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

// NewClient создаёт клиент хранилища аудио.
func NewClient(cfg config.BlobStore) *Client {
	return &Client{
		baseURL:    cfg.BlobBaseURL,
		accessKey:  cfg.BlobAccessKey,
		secretKey:  cfg.BlobSecretKey,
		httpClient: &http.Client{Timeout: cfg.BlobHTTPTimeout},
	}
}

type presignRequest struct {
	Key       string `json:"key"`
	Method    string `json:"method"`
	ExpiresIn int64  `json:"expires_in"`
}

type presignResponse struct {
	URL string `json:"url"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(method + path))
	mac.Write(buf.Bytes())
	req.Header.Set("X-Access-Key", c.accessKey)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) presign(ctx context.Context, key, method string, expiry time.Duration) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/presign", presignRequest{
		Key:       key,
		Method:    method,
		ExpiresIn: int64(expiry.Seconds()),
	})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("unexpected status: " + resp.Status)
	}

	var presignResp presignResponse
	if err := json.NewDecoder(resp.Body).Decode(&presignResp); err != nil {
		return "", err
	}
	return presignResp.URL, nil
}

// PresignUpload выписывает URL для загрузки аудиофайла.
func (c *Client) PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return c.presign(ctx, key, http.MethodPut, expiry)
}

// PresignDownload выписывает URL для скачивания аудиофайла.
func (c *Client) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return c.presign(ctx, key, http.MethodGet, expiry)
}

// Exists проверяет наличие объекта в хранилище.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	path := "/objects/" + url.PathEscape(key)
	req, err := c.newRequest(ctx, http.MethodHead, path, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, errors.New("unexpected status: " + resp.Status)
}
