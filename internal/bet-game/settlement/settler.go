package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

// Ledger é a parte do livro de apostas usada na liquidação
type Ledger interface {
	Matured(now time.Time) []domain.Bet
	Settle(o domain.BetOutcome, apply func(domain.BetOutcome)) error
}

// Scores recebe cada resultado liquidado
type Scores interface {
	RecordOutcome(o domain.BetOutcome)
}

// Quoter busca a cotação final de uma moeda
type Quoter interface {
	Quote(ctx context.Context, currency string) (float64, error)
}

// Settler liquida periodicamente as apostas que passaram da janela de maturação.
// Callbacks de métricas/eventos são opcionais.
type Settler struct {
	Log    *zap.Logger
	Ledger Ledger
	Scores Scores
	Quoter Quoter

	Interval    time.Duration
	Concurrency int // máximo de cotações simultâneas por ciclo
	Now         func() time.Time

	OnSettled func(domain.BetOutcome)     // métricas, kafka, broadcast
	OnError   func(stage string)          // métricas por fase
	OnCycle   func(elapsed time.Duration) // métricas
}

func New(log *zap.Logger, l Ledger, s Scores, q Quoter) *Settler {
	return &Settler{
		Log:         log,
		Ledger:      l,
		Scores:      s,
		Quoter:      q,
		Interval:    5 * time.Second,
		Concurrency: 4,
		Now:         time.Now,
	}
}

// Run executa um ciclo imediatamente e depois a cada Interval, até o contexto ser cancelado.
// Falhas de um ciclo são logadas e o loop continua.
func (s *Settler) Run(ctx context.Context) {
	s.Log.Info("settlement loop started", zap.Duration("interval", s.Interval))

	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		if _, err := s.cycle(ctx); err != nil {
			s.Log.Error("settlement cycle failed", zap.Error(err))
			s.onError("cycle")
		}

		select {
		case <-ctx.Done():
			s.Log.Info("settlement loop stopped")
			return
		case <-t.C:
		}
	}
}

func (s *Settler) cycle(ctx context.Context) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in settlement: %v", r)
		}
	}()
	return s.RunOnce(ctx), nil
}

// RunOnce liquida as apostas maturadas e retorna quantas foram liquidadas.
// Apostas cuja cotação falhou continuam abertas para o próximo ciclo.
func (s *Settler) RunOnce(ctx context.Context) int {
	start := time.Now()
	defer func() {
		if s.OnCycle != nil {
			s.OnCycle(time.Since(start))
		}
	}()

	bets := s.Ledger.Matured(s.Now())
	if len(bets) == 0 {
		return 0
	}

	prices := s.quotes(ctx, bets)

	settled := 0
	for _, b := range bets {
		final, ok := prices[b.Currency]
		if !ok {
			continue
		}

		out := domain.Settle(b, final, s.Now().UTC())
		if err := s.Ledger.Settle(out, s.Scores.RecordOutcome); err != nil {
			// removida entre o snapshot e agora (ex.: forget-user)
			if !errors.Is(err, domain.ErrNotFound) {
				s.onError("settle_store")
			}
			s.Log.Debug("bet no longer open", zap.String("betId", b.ID), zap.Error(err))
			continue
		}
		settled++

		s.Log.Info("bet settled",
			zap.String("betId", b.ID),
			zap.String("userId", b.UserID),
			zap.Bool("won", out.Won),
			zap.Float64("initial", out.InitialPrice),
			zap.Float64("final", out.FinalPrice),
		)
		if s.OnSettled != nil {
			s.OnSettled(out)
		}
	}
	return settled
}

// quotes busca em paralelo uma cotação por moeda distinta entre as apostas.
// Moedas com falha ficam fora do mapa retornado.
func (s *Settler) quotes(ctx context.Context, bets []domain.Bet) map[string]float64 {
	var (
		mu     sync.Mutex
		prices = make(map[string]float64)
		failed = make(map[string]error)
		seen   = make(map[string]bool)
	)

	var g errgroup.Group
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	for _, b := range bets {
		cur := b.Currency
		if seen[cur] {
			continue
		}
		seen[cur] = true

		g.Go(func() error {
			p, err := s.quote(ctx, cur)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[cur] = err
				return nil
			}
			prices[cur] = p
			return nil
		})
	}
	_ = g.Wait()

	for cur, err := range failed {
		s.Log.Warn("settlement quote failed, bets stay open",
			zap.String("currency", cur), zap.Error(err))
		s.onError("settle_quote")
	}
	return prices
}

func (s *Settler) quote(ctx context.Context, currency string) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic quoting %s: %v", currency, r)
		}
	}()
	return s.Quoter.Quote(ctx, currency)
}

func (s *Settler) onError(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}
