package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/serviceauth"
)

// Client is the Dispatcher's HTTP view of a remote Executor Bridge,
// signing every request with the shared service-auth secret.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http: &http.Client{
			Timeout: 35 * time.Second,
		},
	}
}

func (c *Client) ProcessRecurring(ctx context.Context, entry domain.IndexEntry) error {
	now := time.Now()
	payload := ProcessRecurringRequest{
		ScheduleID:  entry.ScheduleID,
		UserAddress: string(entry.UserAddress),
		Recipient:   string(entry.Recipient),
		Amount:      entry.Amount.String(),
		Currency:    entry.Currency,
		Timestamp:   now.UnixMilli(),
		Name:        entry.Name,
		Note:        entry.Note,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal process-recurring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions/process-recurring", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	ts, sig := serviceauth.Sign(c.secret, body, now)
	req.Header.Set(serviceauth.HeaderTimestamp, ts)
	req.Header.Set(serviceauth.HeaderSignature, sig)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: call executor bridge: %v", domain.ErrRPCUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: executor bridge returned status %d", domain.ErrInternal, resp.StatusCode)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decode executor bridge response: %v", domain.ErrInternal, err)
	}
	if result.Status != "completed" {
		return fmt.Errorf("%w: on-chain pull payment failed", domain.ErrChainRevert)
	}
	return nil
}
