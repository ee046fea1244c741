package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/transcribe-hub/internal/config"
	"github.com/magabrotheeeer/transcribe-hub/internal/lib/errs"
	jwtmaker "github.com/magabrotheeeer/transcribe-hub/internal/lib/jwt"
)

// Client — HTTP-клиент шлюза транскрибации. Аутентифицируется сервисным
// JWT в заголовке Authorization; таймаут запроса покрывает приём задачи
// шлюзом, а не саму транскрибацию.
type Client struct {
	baseURL    string
	tokenMaker jwtmaker.Maker
	httpClient *http.Client
}

// NewClient создаёт клиент шлюза транскрибации.
func NewClient(cfg config.Gateway, tokenMaker jwtmaker.Maker) *Client {
	return &Client{
		baseURL:    cfg.GatewayBaseURL,
		tokenMaker: tokenMaker,
		httpClient: &http.Client{Timeout: cfg.GatewayTimeout},
	}
}

// Transcribe передаёт задачу шлюзу транскрибации.
func (c *Client) Transcribe(ctx context.Context, gatewayReq Request) error {
	const op = "gateway.Transcribe"

	body, err := json.Marshal(gatewayReq)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := c.tokenMaker.GenerateToken("transcribe-hub", "service", "")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return fmt.Errorf("%s: %w", op, errs.ErrGatewayTimeout)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%s: status %s: %w", op, resp.Status, errs.ErrGatewayRejected)
	}
	return nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
