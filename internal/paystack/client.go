// Package paystack talks to the Paystack API for bank account resolution,
// transfer recipient creation, and transfer initiation. The core treats all
// three as fallible network calls with no local state to roll back.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// ErrProvider wraps every upstream failure so callers can map all of them to
// one "could not complete with payment provider" response.
var ErrProvider = errors.New("payment provider request failed")

// Provider is the contract the core needs from the payment provider.
type Provider interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (ResolvedAccount, error)
	CreateTransferRecipient(ctx context.Context, accountName, accountNumber, bankCode string) (string, error)
	InitiateTransfer(ctx context.Context, amount int64, reference, recipientCode string) (string, error)
}

// ResolvedAccount is the verified holder of an external bank account.
type ResolvedAccount struct {
	AccountName string
}

// Client is the HTTP implementation of Provider.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient builds a Paystack client. The secret key must not be empty.
func NewClient(secretKey string, logger *slog.Logger) (*Client, error) {
	if secretKey == "" {
		return nil, errors.New("paystack secret key is required")
	}
	return &Client{
		baseURL:   defaultBaseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}, nil
}

// WithBaseURL overrides the API host, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("paystack request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if resp.StatusCode >= 400 || !envelope.Status {
		c.logger.Error("paystack rejected request",
			"path", path, "status", resp.StatusCode, "message", envelope.Message)
		return fmt.Errorf("%w: %s", ErrProvider, envelope.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrProvider, err)
		}
	}
	return nil
}

// ResolveAccount verifies an account number against a bank code and returns
// the registered holder name.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (ResolvedAccount, error) {
	query := url.Values{}
	query.Set("account_number", accountNumber)
	query.Set("bank_code", bankCode)
	var data struct {
		AccountName string `json:"account_name"`
	}
	if err := c.do(ctx, http.MethodGet, "/bank/resolve", query, nil, &data); err != nil {
		return ResolvedAccount{}, err
	}
	return ResolvedAccount{AccountName: data.AccountName}, nil
}

// CreateTransferRecipient registers the account as a transfer destination and
// returns the stable recipient code used for later transfers.
func (c *Client) CreateTransferRecipient(ctx context.Context, accountName, accountNumber, bankCode string) (string, error) {
	payload := map[string]string{
		"type":           "nuban",
		"name":           accountName,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", nil, payload, &data); err != nil {
		return "", err
	}
	return data.RecipientCode, nil
}

// InitiateTransfer asks the provider to move funds to the recipient. Success
// means the request was accepted; settlement arrives asynchronously.
func (c *Client) InitiateTransfer(ctx context.Context, amount int64, reference, recipientCode string) (string, error) {
	payload := map[string]any{
		"source":    "balance",
		"amount":    amount,
		"reference": reference,
		"recipient": recipientCode,
		"reason":    "FlowSplit Payout",
	}
	var data struct {
		TransferCode string `json:"transfer_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/transfer", nil, payload, &data); err != nil {
		return "", err
	}
	return data.TransferCode, nil
}
