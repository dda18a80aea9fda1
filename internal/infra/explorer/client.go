// Package explorer fetches contract transaction history from an
// Etherscan-family block-explorer API, one ascending block-ordered page at a
// time, and classifies upstream failures so the scan layer can decide
// between retrying, pausing, and failing.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buyerscan/buyerscan/internal/core/domain"
	"github.com/buyerscan/buyerscan/internal/scanning/metrics"
)

// DefaultBaseURL targets the Etherscan mainnet API.
const DefaultBaseURL = "https://api.etherscan.io/api"

// Config holds explorer client settings.
type Config struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
}

// Client issues paginated txlist requests against the explorer API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates an explorer client. The API key is validated here so a
// missing credential fails before any network activity.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: slog.Default().With("component", "explorer"),
	}, nil
}

// txRecord mirrors the explorer's string-typed transaction envelope.
type txRecord struct {
	BlockNumber string `json:"blockNumber"`
	From        string `json:"from"`
	Input       string `json:"input"`
}

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// FetchPage requests one page of transactions for the contract, ascending
// from startBlock, and filters the senders of buy transactions.
//
// LastBlockSeen is taken from the raw page, not the filtered subset, so the
// block cursor advances even through pages with zero buys.
func (c *Client) FetchPage(
	ctx context.Context,
	contract string,
	page int,
	startBlock uint64,
) (*domain.PageResult, error) {
	v := url.Values{}
	v.Set("module", "account")
	v.Set("action", "txlist")
	v.Set("address", contract)
	v.Set("startblock", strconv.FormatUint(startBlock, 10))
	v.Set("endblock", "999999999")
	v.Set("page", strconv.Itoa(page))
	v.Set("offset", strconv.Itoa(c.cfg.PageSize))
	v.Set("sort", "asc")
	v.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+v.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("http get: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	var envelope txListResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	metrics.PagesFetched.Inc()

	if envelope.Status != "1" {
		return c.classifyFailure(envelope)
	}

	var records []txRecord
	if err := json.Unmarshal(envelope.Result, &records); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode result: %w", err)}
	}
	if len(records) == 0 {
		return &domain.PageResult{}, nil
	}

	return c.buildResult(page, records)
}

// classifyFailure maps a non-success envelope onto the scan layer's error
// kinds. Quota messages must be checked before the generic rate-limit
// substring, which they also contain.
func (c *Client) classifyFailure(envelope txListResponse) (*domain.PageResult, error) {
	msg := envelope.Message
	var detail string
	if err := json.Unmarshal(envelope.Result, &detail); err == nil && detail != "" {
		msg = msg + ": " + detail
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "No transactions found"):
		return &domain.PageResult{}, nil
	case strings.Contains(msg, "Max rate limit reached") || strings.Contains(lower, "daily limit"):
		metrics.RateLimitHits.Inc()
		return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, msg)
	case strings.Contains(msg, "NOTOK") || strings.Contains(lower, "rate limit"):
		metrics.RateLimitHits.Inc()
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, msg)
	default:
		return nil, &UpstreamError{Status: envelope.Status, Message: msg}
	}
}

func (c *Client) buildResult(page int, records []txRecord) (*domain.PageResult, error) {
	result := &domain.PageResult{RawCount: len(records)}

	for _, rec := range records {
		block, err := strconv.ParseUint(rec.BlockNumber, 10, 64)
		if err != nil {
			return nil, &TransportError{Err: fmt.Errorf("malformed block number %q: %w", rec.BlockNumber, err)}
		}

		tx := domain.Transaction{
			From:        rec.From,
			Input:       rec.Input,
			BlockNumber: block,
		}
		if tx.IsBuy() {
			result.Addresses = append(result.Addresses, strings.ToLower(tx.From))
		}
		result.LastBlockSeen = block
	}

	metrics.TxRecordsScanned.Add(float64(len(records)))
	c.log.Debug("Fetched page",
		"page", page,
		"records", result.RawCount,
		"buyers", len(result.Addresses),
		"last_block", result.LastBlockSeen,
	)

	return result, nil
}
