package scoreboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

func record(b *Board, user string, wins, losses int) {
	for i := 0; i < wins; i++ {
		b.RecordOutcome(domain.BetOutcome{UserID: user, Won: true})
	}
	for i := 0; i < losses; i++ {
		b.RecordOutcome(domain.BetOutcome{UserID: user, Won: false})
	}
}

func TestRecordOutcomeCreatesUser(t *testing.T) {
	b := New()
	b.RecordOutcome(domain.BetOutcome{UserID: "u1", Won: true})

	st, err := b.StatsOf("u1")
	if err != nil {
		t.Fatalf("StatsOf: %v", err)
	}
	if st.DisplayName != "User_u1" || st.Wins != 1 || st.Losses != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStatsWinRate(t *testing.T) {
	tests := []struct {
		wins, losses int
		want         float64
	}{
		{0, 0, 0},
		{1, 0, 100},
		{1, 2, 33.33},
		{2, 1, 66.67},
		{0, 5, 0},
	}

	for _, tt := range tests {
		b := New()
		if tt.wins+tt.losses == 0 {
			_ = b.SetDisplayName("u1", "alice")
		}
		record(b, "u1", tt.wins, tt.losses)

		st, err := b.StatsOf("u1")
		if err != nil {
			t.Fatalf("StatsOf: %v", err)
		}
		if st.WinRate != tt.want {
			t.Errorf("%dW/%dL win rate = %v, want %v", tt.wins, tt.losses, st.WinRate, tt.want)
		}
		if st.Total != tt.wins+tt.losses || st.Wins != tt.wins || st.Losses != tt.losses {
			t.Errorf("%dW/%dL stats = %+v", tt.wins, tt.losses, st)
		}
	}
}

func TestStatsUnknownUser(t *testing.T) {
	if _, err := New().StatsOf("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetDisplayNameLength(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{strings.Repeat("a", 2), false},
		{strings.Repeat("a", 3), true},
		{strings.Repeat("a", 20), true},
		{strings.Repeat("a", 21), false},
		{"ção", true},
	}

	for _, tt := range tests {
		b := New()
		err := b.SetDisplayName("u1", tt.name)
		if tt.ok && err != nil {
			t.Errorf("SetDisplayName(%q) unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("SetDisplayName(%q) = %v, want ErrInvalidArgument", tt.name, err)
		}
		if !tt.ok && b.Count() != 0 {
			t.Errorf("rejected name must not create a user")
		}
	}
}

func TestSetDisplayNameKeepsScore(t *testing.T) {
	b := New()
	record(b, "u1", 2, 1)
	if err := b.SetDisplayName("u1", "alice"); err != nil {
		t.Fatal(err)
	}

	st, _ := b.StatsOf("u1")
	if st.DisplayName != "alice" || st.Wins != 2 || st.Losses != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestTopNStableAndTruncated(t *testing.T) {
	b := New()
	for i, user := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		record(b, user, i%3, 0)
		if i%3 == 0 {
			_ = b.SetDisplayName(user, "name_"+user)
		}
	}

	top := b.TopN(10)
	if len(top) != 10 {
		t.Fatalf("len = %d, want 10", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Wins > top[i-1].Wins {
			t.Fatalf("not sorted by wins desc: %+v", top)
		}
	}
	// empates mantêm a ordem de inserção
	want := []string{"c", "f", "i", "l", "b", "e", "h", "k", "a", "d"}
	for i, id := range want {
		if top[i].UserID != id {
			t.Fatalf("position %d = %s, want %s (%+v)", i, top[i].UserID, id, top)
		}
	}
}

func TestRankOf(t *testing.T) {
	b := New()
	record(b, "a", 1, 0)
	record(b, "b", 3, 0)
	record(b, "c", 1, 4)

	if r := b.RankOf("b"); r != 1 {
		t.Errorf("rank b = %d, want 1", r)
	}
	if r := b.RankOf("a"); r != 2 {
		t.Errorf("rank a = %d, want 2", r)
	}
	if r := b.RankOf("c"); r != 3 {
		t.Errorf("rank c = %d, want 3", r)
	}
	if r := b.RankOf("ghost"); r != 4 {
		t.Errorf("rank of unknown user = %d, want count+1 = 4", r)
	}

	st, _ := b.StatsOf("c")
	if st.Rank != 3 {
		t.Errorf("stats rank = %d, want 3", st.Rank)
	}
}

func TestForget(t *testing.T) {
	b := New()
	record(b, "a", 1, 0)
	record(b, "b", 2, 0)

	if !b.Forget("b") {
		t.Fatal("Forget(b) = false")
	}
	if b.Forget("b") {
		t.Fatal("second Forget(b) should report false")
	}
	if b.Count() != 1 || b.RankOf("a") != 1 {
		t.Errorf("count = %d, rank a = %d", b.Count(), b.RankOf("a"))
	}
}

func TestSetDisplayNameTaken(t *testing.T) {
	b := New()
	if err := b.SetDisplayName("u1", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := b.SetDisplayName("u2", "alice"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate name = %v, want ErrConflict", err)
	}
	if b.Count() != 1 {
		t.Errorf("rejected name must not create a user")
	}
	// o próprio dono pode regravar o nome
	if err := b.SetDisplayName("u1", "alice"); err != nil {
		t.Errorf("re-setting own name: %v", err)
	}
	if err := b.SetDisplayName("u2", "Alice"); err != nil {
		t.Errorf("names are case sensitive: %v", err)
	}
}
