package paytest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cryptoshop-bot/internal/cryptopay"
)

type fakeProber struct {
	app cryptopay.App
	err error
}

func (p fakeProber) GetMe(ctx context.Context) (cryptopay.App, error) {
	return p.app, p.err
}

func TestRunStartupTest(t *testing.T) {
	tests := []struct {
		name       string
		prober     fakeProber
		wantErr    bool
		wantNotice string
	}{
		{"Connected", fakeProber{app: cryptopay.App{AppID: 7, Name: "shop"}}, false, "shop (#7)"},
		{"Unreachable", fakeProber{err: errors.New("dial tcp: timeout")}, true, "dial tcp: timeout"},
		{"Empty app", fakeProber{}, true, "empty app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var notices []string
			it := NewIntegrationTest(tt.prober, "https://testnet-pay.crypt.bot/api", func(msg string) {
				notices = append(notices, msg)
			})

			err := it.RunStartupTest(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunStartupTest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(notices) != 1 || !strings.Contains(notices[0], tt.wantNotice) {
				t.Errorf("notices = %q, want one containing %q", notices, tt.wantNotice)
			}
		})
	}
}
