// internal/gateway/http_client.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rdm-service/internal/domain/device"
	xerrors "rdm-service/internal/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// HTTPClient talks to the remote-desktop gateway's REST API.
type HTTPClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL, authToken string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:    baseURL,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type connectionRequest struct {
	Host       string `json:"hostname"`
	Port       int    `json:"port"`
	Protocol   string `json:"protocol"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// RequestConnection asks the gateway to open a session. Any transport error
// or non-2xx status maps to xerrors.ErrGatewayUnavailable; the caller decides
// what to record, this client never retries.
func (c *HTTPClient) RequestConnection(ctx context.Context, d *device.Device, secrets *device.Secrets) (*Handle, error) {
	payload := connectionRequest{
		Host:     d.Host,
		Port:     d.Port,
		Protocol: string(d.Protocol),
		Username: d.Username,
	}
	if secrets != nil {
		payload.Password = secrets.Password
		payload.PrivateKey = secrets.PrivateKey
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/connections", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", zap.Error(err))
		return nil, xerrors.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("gateway rejected connection",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, xerrors.ErrGatewayUnavailable
	}

	var handle Handle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		c.logger.Warn("gateway returned malformed response", zap.Error(err))
		return nil, xerrors.ErrGatewayUnavailable
	}
	if handle.ID == "" {
		c.logger.Warn("gateway returned empty connection id")
		return nil, xerrors.ErrGatewayUnavailable
	}
	return &handle, nil
}

// ReleaseConnection tells the gateway to tear a session down.
func (c *HTTPClient) ReleaseConnection(ctx context.Context, connID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/connections/"+connID, nil)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway release failed", zap.Error(err), zap.String("conn_id", connID))
		return xerrors.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("gateway refused release",
			zap.Int("status", resp.StatusCode), zap.String("conn_id", connID))
		return xerrors.ErrGatewayUnavailable
	}
	return nil
}
