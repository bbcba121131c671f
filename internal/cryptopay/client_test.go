package cryptopay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", Timeout: 2 * time.Second}, nil)
}

func TestCreateInvoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/createInvoice" {
			t.Errorf("request = %s %s, want POST /createInvoice", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Crypto-Pay-API-Token"); got != "secret" {
			t.Errorf("token header = %q, want secret", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["amount"] != "5" || body["currency"] != "USDT" || body["description"] != "Basic" {
			t.Errorf("body = %v", body)
		}

		w.Write([]byte(`{"ok":true,"result":{"invoice_id":101,"pay_url":"https://pay/101"}}`))
	})

	inv, err := client.CreateInvoice(context.Background(), "5", "USDT", "Basic")
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if inv.ID != "101" || inv.PayURL != "https://pay/101" {
		t.Errorf("CreateInvoice() = %+v", inv)
	}
}

func TestCreateInvoiceStringID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"invoice_id":"INV1","pay_url":"https://pay/INV1"}}`))
	})

	inv, err := client.CreateInvoice(context.Background(), "5", "USDT", "Basic")
	if err != nil {
		t.Fatalf("CreateInvoice() error = %v", err)
	}
	if inv.ID != "INV1" {
		t.Errorf("ID = %q, want INV1", inv.ID)
	}
}

func TestCreateInvoiceFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"Non 200", http.StatusUnauthorized, `{"ok":false,"error":{"code":401,"name":"UNAUTHORIZED"}}`, ErrUnexpectedStatus},
		{"Rejected", http.StatusOK, `{"ok":false,"error":{"code":400,"name":"AMOUNT_TOO_SMALL"}}`, ErrRejected},
		{"Not JSON", http.StatusOK, `<html>oops</html>`, ErrMalformedResponse},
		{"No result", http.StatusOK, `{"ok":true}`, ErrMalformedResponse},
		{"No pay url", http.StatusOK, `{"ok":true,"result":{"invoice_id":1}}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.CreateInvoice(context.Background(), "5", "USDT", "Basic")
			var gwErr *Error
			if !errors.As(err, &gwErr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if gwErr.Op != "createInvoice" {
				t.Errorf("Op = %q, want createInvoice", gwErr.Op)
			}
		})
	}
}

func TestCreateInvoiceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Token: "secret"}, nil)
	_, err := client.CreateInvoice(context.Background(), "5", "USDT", "Basic")

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
}

func TestInvoiceStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/getInvoices" {
			t.Errorf("request = %s %s, want GET /getInvoices", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("invoice_ids"); got != "INV1" {
			t.Errorf("invoice_ids = %q, want INV1", got)
		}
		w.Write([]byte(`{"ok":true,"result":{"items":[{"invoice_id":1,"status":"paid","pay_url":"https://pay/INV1"}]}}`))
	})

	state, err := client.InvoiceStatus(context.Background(), "INV1")
	if err != nil {
		t.Fatalf("InvoiceStatus() error = %v", err)
	}
	if !state.Paid() || state.PayURL != "https://pay/INV1" {
		t.Errorf("InvoiceStatus() = %+v", state)
	}
}

func TestInvoiceStatusNotPaid(t *testing.T) {
	for _, status := range []string{"active", "expired"} {
		t.Run(status, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"ok":true,"result":{"items":[{"status":"` + status + `","pay_url":"u"}]}}`))
			})

			state, err := client.InvoiceStatus(context.Background(), "INV1")
			if err != nil {
				t.Fatalf("InvoiceStatus() error = %v", err)
			}
			if state.Paid() {
				t.Errorf("Paid() = true for status %q", status)
			}
		})
	}
}

func TestInvoiceStatusEmptyItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":{"items":[]}}`))
	})

	_, err := client.InvoiceStatus(context.Background(), "INV1")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestGetMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getMe" {
			t.Errorf("path = %s, want /getMe", r.URL.Path)
		}
		w.Write([]byte(`{"ok":true,"result":{"app_id":7,"name":"shop"}}`))
	})

	app, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe() error = %v", err)
	}
	if app.AppID != 7 || app.Name != "shop" {
		t.Errorf("GetMe() = %+v", app)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "getInvoices", StatusCode: 500, Code: "INTERNAL", Err: ErrUnexpectedStatus}
	want := "cryptopay getInvoices: status 500 (INTERNAL): unexpected http status"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
