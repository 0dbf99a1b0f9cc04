package scoreboard

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

const (
	MinNameLen = 3
	MaxNameLen = 20
)

// Board mantém o placar de vitórias/derrotas por usuário.
// A ordem de inserção é preservada para desempatar o ranking.
type Board struct {
	mu     sync.RWMutex
	scores map[string]*domain.UserScore
	order  []string
}

func New() *Board {
	return &Board{scores: make(map[string]*domain.UserScore)}
}

// getOrCreateLocked exige b.mu travado para escrita
func (b *Board) getOrCreateLocked(userID, name string) *domain.UserScore {
	s, ok := b.scores[userID]
	if !ok {
		s = &domain.UserScore{UserID: userID, DisplayName: name}
		b.scores[userID] = s
		b.order = append(b.order, userID)
	}
	return s
}

// RecordOutcome contabiliza uma liquidação no placar do usuário
func (b *Board) RecordOutcome(o domain.BetOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.getOrCreateLocked(o.UserID, domain.DefaultDisplayName(o.UserID))
	if o.Won {
		s.Wins++
	} else {
		s.Losses++
	}
}

// SetDisplayName valida (3 a 20 caracteres) e grava o nome do usuário.
// Nome já usado por outro usuário retorna domain.ErrConflict.
func (b *Board) SetDisplayName(userID, name string) error {
	if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
		return fmt.Errorf("username must be between %d and %d characters: %w", MinNameLen, MaxNameLen, domain.ErrInvalidArgument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.scores {
		if id != userID && s.DisplayName == name {
			return fmt.Errorf("username %q: %w", name, domain.ErrConflict)
		}
	}
	b.getOrCreateLocked(userID, name).DisplayName = name
	return nil
}

// rankedLocked devolve cópias ordenadas por vitórias (desc), estável na inserção
func (b *Board) rankedLocked() []domain.UserScore {
	out := make([]domain.UserScore, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.scores[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	return out
}

// TopN retorna até n usuários com mais vitórias
func (b *Board) TopN(n int) []domain.UserScore {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ranked := b.rankedLocked()
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// RankOf retorna a posição (1-based) do usuário; ausente = total de usuários + 1
func (b *Board) RankOf(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rankOfLocked(userID)
}

func (b *Board) rankOfLocked(userID string) int {
	for i, s := range b.rankedLocked() {
		if s.UserID == userID {
			return i + 1
		}
	}
	return len(b.scores) + 1
}

// StatsOf retorna vitórias, derrotas, total, win rate (%) e posição do usuário
func (b *Board) StatsOf(userID string) (domain.UserStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.scores[userID]
	if !ok {
		return domain.UserStats{}, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	total := s.Wins + s.Losses
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(s.Wins)/float64(total)*100*100) / 100
	}
	return domain.UserStats{
		UserScore: *s,
		Total:     total,
		WinRate:   rate,
		Rank:      b.rankOfLocked(userID),
	}, nil
}

// Count retorna o total de usuários no placar
func (b *Board) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scores)
}

// Forget remove o usuário do placar; retorna false se ele não existia
func (b *Board) Forget(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.scores[userID]; !ok {
		return false
	}
	delete(b.scores, userID)
	for i, id := range b.order {
		if id == userID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return true
}
