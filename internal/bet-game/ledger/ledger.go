package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

// Quoter busca a cotação ao vivo usada na abertura da aposta
type Quoter interface {
	Quote(ctx context.Context, currency string) (float64, error)
}

// Currencies informa quais moedas o cache de preços já conhece
type Currencies interface {
	Known(currency string) bool
}

// Status é a visão de uma aposta: aberta (Bet + Remaining) ou liquidada (Outcome)
type Status struct {
	Active    bool
	Bet       domain.Bet
	Remaining time.Duration
	Outcome   domain.BetOutcome
}

// Ledger guarda apostas abertas e resultados, ambos indexados pelo betID.
// Um betID nunca está nos dois mapas ao mesmo tempo.
type Ledger struct {
	quoter     Quoter
	currencies Currencies

	Now   func() time.Time
	NewID func() string

	// Retention limita os resultados guardados (0 = sem limite); os mais antigos saem primeiro
	Retention int

	mu       sync.RWMutex
	open     map[string]domain.Bet
	outcomes map[string]domain.BetOutcome
	settled  []string // ordem de liquidação, usada pela retenção
}

func New(q Quoter, c Currencies, retention int) *Ledger {
	return &Ledger{
		quoter:     q,
		currencies: c,
		Now:        time.Now,
		NewID:      uuid.NewString,
		Retention:  retention,
		open:       make(map[string]domain.Bet),
		outcomes:   make(map[string]domain.BetOutcome),
	}
}

// Place valida a aposta, captura a cotação atual e registra a aposta aberta
func (l *Ledger) Place(ctx context.Context, userID, currency string, dir domain.Direction, amount float64) (domain.Bet, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if !l.currencies.Known(currency) {
		return domain.Bet{}, fmt.Errorf("%s: %w", currency, domain.ErrUnknownCurrency)
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Bet{}, fmt.Errorf("user_id required: %w", domain.ErrInvalidArgument)
	}
	if dir != domain.Up && dir != domain.Down {
		return domain.Bet{}, fmt.Errorf("bet_type %q: %w", dir, domain.ErrInvalidArgument)
	}
	if !(amount > 0) {
		return domain.Bet{}, fmt.Errorf("bet_amount must be positive: %w", domain.ErrInvalidArgument)
	}

	price, err := l.quoter.Quote(ctx, currency)
	if err != nil {
		return domain.Bet{}, err
	}

	b := domain.Bet{
		ID:         l.NewID(),
		UserID:     userID,
		Currency:   currency,
		Direction:  dir,
		PriceAtBet: price,
		Amount:     amount,
		PlacedAt:   l.Now().UTC(),
	}

	l.mu.Lock()
	l.open[b.ID] = b
	l.mu.Unlock()

	return b, nil
}

// Status retorna o estado da aposta ou domain.ErrNotFound
func (l *Ledger) Status(betID string) (Status, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if b, ok := l.open[betID]; ok {
		remaining := b.MaturesAt().Sub(l.Now())
		if remaining < 0 {
			remaining = 0 // maturada, aguardando o próximo ciclo de liquidação
		}
		return Status{Active: true, Bet: b, Remaining: remaining}, nil
	}
	if o, ok := l.outcomes[betID]; ok {
		return Status{Outcome: o}, nil
	}
	return Status{}, fmt.Errorf("bet %s: %w", betID, domain.ErrNotFound)
}

// ListForUser separa as apostas abertas e os resultados de um usuário
func (l *Ledger) ListForUser(userID string) (map[string]domain.Bet, map[string]domain.BetOutcome) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	active := make(map[string]domain.Bet)
	for id, b := range l.open {
		if b.UserID == userID {
			active[id] = b
		}
	}
	completed := make(map[string]domain.BetOutcome)
	for id, o := range l.outcomes {
		if o.UserID == userID {
			completed[id] = o
		}
	}
	return active, completed
}

// Matured retorna um snapshot das apostas abertas cuja janela já passou em now,
// ordenadas pela abertura
func (l *Ledger) Matured(now time.Time) []domain.Bet {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Bet
	for _, b := range l.open {
		if b.Matured(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out
}

// Settle move a aposta de aberta para liquidada em uma única seção crítica.
// apply (opcional) roda sob o mesmo lock, então um ForgetUser concorrente
// nunca fica entre a gravação do resultado e a contabilização no placar.
// Retorna domain.ErrNotFound se a aposta não estiver mais aberta.
func (l *Ledger) Settle(o domain.BetOutcome, apply func(domain.BetOutcome)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[o.BetID]; !ok {
		return fmt.Errorf("open bet %s: %w", o.BetID, domain.ErrNotFound)
	}
	delete(l.open, o.BetID)
	l.outcomes[o.BetID] = o
	l.settled = append(l.settled, o.BetID)
	l.evictLocked()
	if apply != nil {
		apply(o)
	}
	return nil
}

// evictLocked aplica a retenção; ids já removidos (ForgetUser) são ignorados
func (l *Ledger) evictLocked() {
	if l.Retention <= 0 {
		return
	}
	for len(l.outcomes) > l.Retention && len(l.settled) > 0 {
		delete(l.outcomes, l.settled[0])
		l.settled = l.settled[1:]
	}
}

// OpenCount retorna quantas apostas aguardam liquidação
func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.open)
}

// ForgetUser remove apostas abertas e resultados do usuário.
// forget (opcional) roda sob o lock do livro, serializado com Settle.
func (l *Ledger) ForgetUser(userID string, forget func(userID string)) (openRemoved, outcomesRemoved int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if forget != nil {
		forget(userID)
	}

	for id, b := range l.open {
		if b.UserID == userID {
			delete(l.open, id)
			openRemoved++
		}
	}
	for id, o := range l.outcomes {
		if o.UserID == userID {
			delete(l.outcomes, id)
			outcomesRemoved++
		}
	}
	if outcomesRemoved > 0 {
		kept := l.settled[:0]
		for _, id := range l.settled {
			if _, ok := l.outcomes[id]; ok {
				kept = append(kept, id)
			}
		}
		l.settled = kept
	}
	return openRemoved, outcomesRemoved
}
