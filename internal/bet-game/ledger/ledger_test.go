package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

type fixedQuoter struct {
	price float64
	err   error
}

func (q fixedQuoter) Quote(context.Context, string) (float64, error) { return q.price, q.err }

type knownSet map[string]bool

func (k knownSet) Known(c string) bool { return k[c] }

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLedger(q Quoter) (*Ledger, *clock) {
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := New(q, knownSet{"usd": true, "eur": true}, 0)
	l.Now = clk.now
	return l, clk
}

func TestPlace(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})

	b, err := l.Place(context.Background(), "u1", "USD", domain.Up, 10)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if b.ID == "" {
		t.Fatal("expected a generated id")
	}
	if b.PriceAtBet != 100 || b.Currency != "usd" || b.Amount != 10 || b.UserID != "u1" {
		t.Errorf("unexpected bet: %+v", b)
	}
	if !b.PlacedAt.Equal(clk.t) {
		t.Errorf("PlacedAt = %s, want %s", b.PlacedAt, clk.t)
	}
	if l.OpenCount() != 1 {
		t.Errorf("OpenCount = %d, want 1", l.OpenCount())
	}
}

func TestPlaceErrors(t *testing.T) {
	tests := []struct {
		name     string
		quoter   Quoter
		user     string
		currency string
		dir      domain.Direction
		amount   float64
		want     error
	}{
		{"unknown currency", fixedQuoter{price: 1}, "u1", "jpy", domain.Up, 1, domain.ErrUnknownCurrency},
		{"bad direction", fixedQuoter{price: 1}, "u1", "usd", domain.Direction("flat"), 1, domain.ErrInvalidArgument},
		{"zero amount", fixedQuoter{price: 1}, "u1", "usd", domain.Down, 0, domain.ErrInvalidArgument},
		{"missing user", fixedQuoter{price: 1}, " ", "usd", domain.Down, 1, domain.ErrInvalidArgument},
		{"upstream down", fixedQuoter{err: fmt.Errorf("%w: boom", domain.ErrUpstreamUnavailable)}, "u1", "usd", domain.Up, 1, domain.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(tt.quoter)
			_, err := l.Place(context.Background(), tt.user, tt.currency, tt.dir, tt.amount)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if l.OpenCount() != 0 {
				t.Fatal("failed placement must not store a bet")
			}
		})
	}
}

func TestStatusLifecycle(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	b, _ := l.Place(context.Background(), "u1", "usd", domain.Up, 10)

	clk.t = clk.t.Add(20 * time.Second)
	st, err := l.Status(b.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Active || st.Remaining != 40*time.Second {
		t.Fatalf("status = %+v, want active with 40s remaining", st)
	}

	clk.t = clk.t.Add(50 * time.Second)
	st, _ = l.Status(b.ID)
	if !st.Active || st.Remaining != 0 {
		t.Fatalf("matured but unsettled bet should report 0 remaining, got %+v", st)
	}

	out := domain.Settle(b, 105, clk.t)
	if err := l.Settle(out, nil); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	st, err = l.Status(b.ID)
	if err != nil || st.Active || !st.Outcome.Won || st.Outcome.Profit != 10 {
		t.Fatalf("status after settle = %+v, %v", st, err)
	}

	if err := l.Settle(out, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second settle should fail with ErrNotFound, got %v", err)
	}
	if _, err := l.Status("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatured(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	first, _ := l.Place(context.Background(), "u1", "usd", domain.Up, 1)
	clk.t = clk.t.Add(30 * time.Second)
	second, _ := l.Place(context.Background(), "u2", "eur", domain.Down, 1)

	if got := l.Matured(clk.t); len(got) != 0 {
		t.Fatalf("nothing should be matured yet, got %d", len(got))
	}

	got := l.Matured(first.PlacedAt.Add(domain.MaturityWindow))
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("Matured = %+v, want only the first bet", got)
	}

	got = l.Matured(second.PlacedAt.Add(time.Hour))
	if len(got) != 2 || got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("Matured should be ordered by placement, got %+v", got)
	}
}

func TestListForUser(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	a, _ := l.Place(context.Background(), "u1", "usd", domain.Up, 1)
	b, _ := l.Place(context.Background(), "u1", "usd", domain.Down, 2)
	_, _ = l.Place(context.Background(), "u2", "usd", domain.Up, 3)

	_ = l.Settle(domain.Settle(a, 90, clk.t), nil)

	active, completed := l.ListForUser("u1")
	if len(active) != 1 || active[b.ID].ID != b.ID {
		t.Errorf("active = %+v", active)
	}
	if len(completed) != 1 || completed[a.ID].BetID != a.ID {
		t.Errorf("completed = %+v", completed)
	}

	active, completed = l.ListForUser("nobody")
	if len(active) != 0 || len(completed) != 0 {
		t.Error("unknown user should have no bets")
	}
}

func TestConcurrentPlacementsGetUniqueIDs(t *testing.T) {
	l, _ := newTestLedger(fixedQuoter{price: 100})

	const n = 200
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := l.Place(context.Background(), "u1", "usd", domain.Up, 1)
			if err != nil {
				t.Error(err)
				return
			}
			ids <- b.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if l.OpenCount() != n {
		t.Fatalf("OpenCount = %d, want %d", l.OpenCount(), n)
	}
}

func TestRetentionEvictsOldestOutcomes(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	l.Retention = 2

	var bets []domain.Bet
	for i := 0; i < 3; i++ {
		b, _ := l.Place(context.Background(), "u1", "usd", domain.Up, 1)
		bets = append(bets, b)
	}
	for _, b := range bets {
		if err := l.Settle(domain.Settle(b, 101, clk.t), nil); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := l.Status(bets[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("oldest outcome should be evicted, got %v", err)
	}
	for _, b := range bets[1:] {
		if st, err := l.Status(b.ID); err != nil || st.Active {
			t.Errorf("outcome %s should be retained: %+v %v", b.ID, st, err)
		}
	}
}

func TestForgetUser(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	l.Retention = 10
	a, _ := l.Place(context.Background(), "u1", "usd", domain.Up, 1)
	_, _ = l.Place(context.Background(), "u1", "usd", domain.Up, 1)
	other, _ := l.Place(context.Background(), "u2", "usd", domain.Up, 1)
	_ = l.Settle(domain.Settle(a, 101, clk.t), nil)

	open, outcomes := l.ForgetUser("u1", nil)
	if open != 1 || outcomes != 1 {
		t.Fatalf("ForgetUser = %d/%d, want 1/1", open, outcomes)
	}
	if _, err := l.Status(a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("forgotten outcome still visible")
	}
	if _, err := l.Status(other.ID); err != nil {
		t.Errorf("other user's bet removed: %v", err)
	}
}

// tally é um placar mínimo: total de resultados por usuário
type tally struct {
	mu sync.Mutex
	n  map[string]int
}

func (s *tally) record(o domain.BetOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n[o.UserID]++
}

func (s *tally) forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.n, userID)
}

func (s *tally) total(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n[userID]
}

func TestForgetUserWaitsForScoring(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	b, _ := l.Place(context.Background(), "u1", "usd", domain.Up, 1)
	scores := &tally{n: map[string]int{}}

	entered := make(chan struct{})
	release := make(chan struct{})
	settled := make(chan error, 1)
	go func() {
		settled <- l.Settle(domain.Settle(b, 105, clk.t), func(o domain.BetOutcome) {
			close(entered)
			<-release
			scores.record(o)
		})
	}()
	<-entered

	type counts struct{ open, outcomes int }
	forgotten := make(chan counts, 1)
	go func() {
		o, c := l.ForgetUser("u1", scores.forget)
		forgotten <- counts{o, c}
	}()

	select {
	case <-forgotten:
		t.Fatal("ForgetUser completed between storing and scoring a settlement")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	if err := <-settled; err != nil {
		t.Fatalf("Settle: %v", err)
	}
	got := <-forgotten
	if got.open != 0 || got.outcomes != 1 {
		t.Fatalf("ForgetUser = %+v, want 0 open / 1 outcome", got)
	}
	if n := scores.total("u1"); n != 0 {
		t.Errorf("score total = %d after forget, want 0", n)
	}
	if active, done := l.ListForUser("u1"); len(active)+len(done) != 0 {
		t.Errorf("bets left after forget: %d active, %d completed", len(active), len(done))
	}
}

func TestSettleAfterForgetSkipsScoring(t *testing.T) {
	l, clk := newTestLedger(fixedQuoter{price: 100})
	b, _ := l.Place(context.Background(), "u1", "usd", domain.Down, 1)
	scores := &tally{n: map[string]int{}}

	l.ForgetUser("u1", scores.forget)
	err := l.Settle(domain.Settle(b, 90, clk.t), scores.record)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Settle after forget = %v, want ErrNotFound", err)
	}
	if n := scores.total("u1"); n != 0 {
		t.Errorf("score recorded for a forgotten bet: %d", n)
	}
}
