package balance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestFromSmallestUnit(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"1500000000000000000", "1.5"},
		{"5", "0.000000000000000005"},
		{"0", "0"},
		{"123456789012345678901234567890", "123456789012.34567890123456789"},
	}

	for _, tc := range cases {
		got, err := FromSmallestUnit(tc.raw, EtherDecimals)
		if err != nil {
			t.Fatalf("FromSmallestUnit(%q): %v", tc.raw, err)
		}
		want, _ := decimal.NewFromString(tc.want)
		if got.Cmp(want) != 0 {
			t.Fatalf("FromSmallestUnit(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestFromSmallestUnitRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "1.5", "-7"} {
		if _, err := FromSmallestUnit(raw, EtherDecimals); err == nil {
			t.Fatalf("FromSmallestUnit(%q) should fail", raw)
		}
	}
}

type fakeProvider struct {
	name   string
	values map[string]decimal.Decimal
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Decimal{}, f.err
	}
	v, ok := f.values[address]
	if !ok {
		return decimal.Decimal{}, errors.New("unknown address")
	}
	return v, nil
}

func TestRefresherSumsAcrossAddresses(t *testing.T) {
	provider := &fakeProvider{name: "fake", values: map[string]decimal.Decimal{
		"0xa": decimal.NewFromFloat(1.5),
		"0xb": decimal.NewFromFloat(2.5),
	}}
	r := NewRefresher([]string{"0xa", "0xb"}, []Provider{provider}, zerolog.Nop())

	total := r.Refresh(context.Background())
	if total == nil || total.Cmp(decimal.NewFromInt(4)) != 0 {
		t.Fatalf("expected total 4, got %v", total)
	}
}

func TestRefresherFallsBackToNextProvider(t *testing.T) {
	broken := &fakeProvider{name: "down", err: errors.New("boom")}
	healthy := &fakeProvider{name: "up", values: map[string]decimal.Decimal{"0xa": decimal.NewFromInt(7)}}
	r := NewRefresher([]string{"0xa"}, []Provider{broken, healthy}, zerolog.Nop())

	total := r.Refresh(context.Background())
	if total == nil || total.Cmp(decimal.NewFromInt(7)) != 0 {
		t.Fatalf("expected fallback value 7, got %v", total)
	}
	if broken.calls != 1 || healthy.calls != 1 {
		t.Fatalf("both providers should be attempted once, got %d/%d", broken.calls, healthy.calls)
	}
}

func TestRefresherSkipsZeroBalanceProvider(t *testing.T) {
	empty := &fakeProvider{name: "empty", values: map[string]decimal.Decimal{"0xa": decimal.Zero}}
	full := &fakeProvider{name: "full", values: map[string]decimal.Decimal{"0xa": decimal.NewFromInt(3)}}
	r := NewRefresher([]string{"0xa"}, []Provider{empty, full}, zerolog.Nop())

	total := r.Refresh(context.Background())
	if total == nil || total.Cmp(decimal.NewFromInt(3)) != 0 {
		t.Fatalf("zero result must fall through to the next provider, got %v", total)
	}
	if empty.calls != 1 || full.calls != 1 {
		t.Fatalf("both providers should be attempted once, got %d/%d", empty.calls, full.calls)
	}
}

func TestRefresherKeepsStaleCacheOnFailure(t *testing.T) {
	provider := &fakeProvider{name: "flaky", values: map[string]decimal.Decimal{"0xa": decimal.NewFromInt(42)}}
	r := NewRefresher([]string{"0xa"}, []Provider{provider}, zerolog.Nop())

	if total := r.Refresh(context.Background()); total == nil || total.Cmp(decimal.NewFromInt(42)) != 0 {
		t.Fatalf("expected 42, got %v", total)
	}

	provider.err = errors.New("rpc down")
	total := r.Refresh(context.Background())
	if total == nil || total.Cmp(decimal.NewFromInt(42)) != 0 {
		t.Fatalf("failed round must keep the stale 42, got %v", total)
	}
}

func TestRefresherNoSuccessNoCache(t *testing.T) {
	provider := &fakeProvider{name: "down", err: errors.New("boom")}
	r := NewRefresher([]string{"0xa"}, []Provider{provider}, zerolog.Nop())
	if total := r.Refresh(context.Background()); total != nil {
		t.Fatalf("nothing fetched yet, cache must stay nil, got %v", total)
	}
}

func TestExplorerProviderParsesWeiString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "balance" {
			t.Fatalf("unexpected action %q", r.URL.Query().Get("action"))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "1", "message": "OK", "result": "1500000000000000000",
		})
	}))
	defer srv.Close()

	p := NewExplorerProvider(srv.URL, "", time.Second, zerolog.Nop())
	got, err := p.Balance(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("explorer balance failed: %v", err)
	}
	if got.Cmp(decimal.NewFromFloat(1.5)) != 0 {
		t.Fatalf("expected 1.5, got %s", got)
	}
}

func TestExplorerProviderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "0", "message": "NOTOK", "result": "Max rate limit reached",
		})
	}))
	defer srv.Close()

	p := NewExplorerProvider(srv.URL, "key", time.Second, zerolog.Nop())
	if _, err := p.Balance(context.Background(), "0xabc"); err == nil {
		t.Fatal("status 0 must be an error")
	}
}

func TestRPCProviderMissingConfig(t *testing.T) {
	p := NewRPCProvider("", time.Second, zerolog.Nop())
	if _, err := p.Balance(context.Background(), "0x0000000000000000000000000000000000000001"); err == nil {
		t.Fatal("未配置 RPC 时应报错")
	}
}
