package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptoshop-bot/internal/metrics"
)

const (
	tokenHeader = "Crypto-Pay-API-Token"

	StatusActive  = "active"
	StatusPaid    = "paid"
	StatusExpired = "expired"
)

// Invoice - созданный провайдером счет
type Invoice struct {
	ID     string
	PayURL string
}

// InvoiceState - текущее состояние счета у провайдера
type InvoiceState struct {
	Status string
	PayURL string
}

func (s InvoiceState) Paid() bool {
	return s.Status == StatusPaid
}

// App - ответ getMe
type App struct {
	AppID int64  `json:"app_id"`
	Name  string `json:"name"`
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client - тонкая обертка над Crypto Pay API. Повторов и кэша нет:
// любая проблема транспорта или ответа превращается в *Error.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	metrics *metrics.Metrics
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

type createInvoiceRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type invoiceItem struct {
	InvoiceID invoiceID `json:"invoice_id"`
	Status    string    `json:"status"`
	PayURL    string    `json:"pay_url"`
}

type invoiceList struct {
	Items []invoiceItem `json:"items"`
}

type envelope struct {
	OK     *bool           `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

type apiError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

func (c *Client) CreateInvoice(ctx context.Context, amount, currency, description string) (Invoice, error) {
	const op = "createInvoice"

	body, err := json.Marshal(createInvoiceRequest{
		Amount:      amount,
		Currency:    currency,
		Description: description,
	})
	if err != nil {
		return Invoice{}, &Error{Op: op, Err: err}
	}

	var item invoiceItem
	if err := c.do(ctx, http.MethodPost, op, nil, body, &item); err != nil {
		return Invoice{}, err
	}
	if item.InvoiceID == "" || item.PayURL == "" {
		return Invoice{}, &Error{Op: op, Err: ErrMalformedResponse}
	}

	return Invoice{ID: string(item.InvoiceID), PayURL: item.PayURL}, nil
}

func (c *Client) InvoiceStatus(ctx context.Context, invoiceID string) (InvoiceState, error) {
	const op = "getInvoices"

	query := url.Values{"invoice_ids": {invoiceID}}

	var list invoiceList
	if err := c.do(ctx, http.MethodGet, op, query, nil, &list); err != nil {
		return InvoiceState{}, err
	}
	if len(list.Items) == 0 || list.Items[0].Status == "" {
		return InvoiceState{}, &Error{Op: op, Err: ErrMalformedResponse}
	}

	item := list.Items[0]
	return InvoiceState{Status: item.Status, PayURL: item.PayURL}, nil
}

// GetMe проверяет токен и доступность API
func (c *Client) GetMe(ctx context.Context) (App, error) {
	var app App
	err := c.do(ctx, http.MethodGet, "getMe", nil, nil, &app)
	return app, err
}

func (c *Client) do(ctx context.Context, method, op string, query url.Values, body []byte, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveGateway(op, started, err) }()

	endpoint := c.baseURL + "/" + op
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set(tokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode != http.StatusOK {
		e := &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
		if decodeErr == nil && env.Error != nil {
			e.Code = env.Error.Name
		}
		return e
	}
	if decodeErr != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)}
	}
	if env.OK != nil && !*env.OK {
		e := &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrRejected}
		if env.Error != nil {
			e.Code = env.Error.Name
		}
		return e
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrMalformedResponse}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

// invoiceID принимает идентификатор и числом, и строкой
type invoiceID string

func (id *invoiceID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = invoiceID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("invoice_id is neither string nor number")
	}
	*id = invoiceID(n.String())
	return nil
}
