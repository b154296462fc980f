package bot

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"oracle-aggregator/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type stubReader struct {
	last    *domain.PriceData
	at      map[uint64]*domain.PriceData
	err     error
	assets  []domain.Asset
	atCalls int
}

func (s *stubReader) LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	return s.last, s.err
}

func (s *stubReader) Price(ctx context.Context, asset domain.Asset, ts uint64) (*domain.PriceData, error) {
	s.atCalls++
	return s.at[ts], s.err
}

func (s *stubReader) Assets(ctx context.Context) ([]domain.Asset, error) {
	return s.assets, s.err
}

func (s *stubReader) Decimals(ctx context.Context) (uint32, error) {
	return 7, nil
}

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	orig := newBotFunc
	defer func() { newBotFunc = orig }()
	newBotFunc = func(tele.Settings) (*tele.Bot, error) {
		t.Fatal("bot must not be created without a token")
		return nil, nil
	}
	if err := StartTelegramBot("", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartTelegramBotCreateError(t *testing.T) {
	orig := newBotFunc
	defer func() { newBotFunc = orig }()
	newBotFunc = func(tele.Settings) (*tele.Bot, error) { return nil, errors.New("unauthorized") }

	if err := StartTelegramBot("token", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestPriceReply(t *testing.T) {
	p := domain.NewPriceData(1100000, 1441065600)
	r := &stubReader{last: &p}

	got := priceReply(context.Background(), r, []string{"stellar:GBXLM"})
	if !strings.Contains(got, "Price: 0.1100000") || !strings.Contains(got, "2015-09-01T00:00:00Z") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestPriceReplyHistorical(t *testing.T) {
	p := domain.PriceData{Price: big.NewInt(990000), Timestamp: 1441065300}
	r := &stubReader{at: map[uint64]*domain.PriceData{1441065300: &p}}

	got := priceReply(context.Background(), r, []string{"USDC", "1441065300"})
	if r.atCalls != 1 || !strings.Contains(got, "0.0990000") {
		t.Errorf("unexpected reply %q after %d calls", got, r.atCalls)
	}
	if got := priceReply(context.Background(), r, []string{"USDC", "soon"}); !strings.HasPrefix(got, "Invalid timestamp") {
		t.Errorf("unexpected reply: %q", got)
	}
}

func TestPriceReplyErrors(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		r    *stubReader
		args []string
		want string
	}{
		{"usage", &stubReader{}, nil, "Usage:"},
		{"bad asset", &stubReader{}, []string{"nope:X"}, "Invalid asset"},
		{"unknown", &stubReader{err: domain.ErrAssetNotFound}, []string{"BTC"}, "Unknown asset: other:BTC"},
		{"blocked", &stubReader{err: domain.ErrAssetBlocked}, []string{"BTC"}, "other:BTC is blocked"},
		{"empty", &stubReader{}, []string{"BTC"}, "No price available"},
	}
	for _, tc := range cases {
		if got := priceReply(ctx, tc.r, tc.args); !strings.Contains(got, tc.want) {
			t.Errorf("%s: reply %q does not contain %q", tc.name, got, tc.want)
		}
	}
}

func TestAssetsReply(t *testing.T) {
	r := &stubReader{assets: []domain.Asset{domain.StellarAsset("GBXLM"), domain.OtherAsset("USDC")}}
	got := assetsReply(context.Background(), r)
	if got != "Assets:\nstellar:GBXLM\nother:USDC" {
		t.Errorf("unexpected reply: %q", got)
	}
	if got := assetsReply(context.Background(), &stubReader{}); got != "No assets registered" {
		t.Errorf("unexpected reply: %q", got)
	}
}
