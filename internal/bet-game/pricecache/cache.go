package pricecache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

// Quoter busca uma cotação atual para a moeda
type Quoter interface {
	Quote(ctx context.Context, currency string) (float64, error)
}

// Cache mantém, por moeda, um buffer FIFO com as últimas Size amostras.
// Callbacks podem ser usadas para métricas, espelho no Redis e broadcast.
type Cache struct {
	Log        *zap.Logger
	Quoter     Quoter
	Currencies []string
	Size       int

	Interval   time.Duration // intervalo normal entre ciclos
	RetryDelay time.Duration // espera após um ciclo com falha
	Now        func() time.Time

	OnSample func(currency string, s domain.PriceSample) // métricas/broadcast
	OnError  func(stage string)                          // métricas

	mu  sync.RWMutex
	buf map[string][]domain.PriceSample
}

// New cria o cache com os defaults do jogo (12 amostras, 15s, retry 5s)
func New(log *zap.Logger, q Quoter, currencies []string) *Cache {
	return &Cache{
		Log:        log,
		Quoter:     q,
		Currencies: currencies,
		Size:       12,
		Interval:   15 * time.Second,
		RetryDelay: 5 * time.Second,
		Now:        time.Now,
		buf:        make(map[string][]domain.PriceSample),
	}
}

// Refresh garante o buffer da moeda, busca uma cotação e grava a amostra,
// descartando a mais antiga quando o buffer está cheio
func (c *Cache) Refresh(ctx context.Context, currency string) (domain.PriceSample, error) {
	currency = strings.ToLower(currency)

	c.mu.Lock()
	if _, ok := c.buf[currency]; !ok {
		c.buf[currency] = make([]domain.PriceSample, 0, c.Size)
	}
	c.mu.Unlock()

	// fetch fora do lock
	price, err := c.Quoter.Quote(ctx, currency)
	if err != nil {
		return domain.PriceSample{}, err
	}
	s := domain.PriceSample{Timestamp: c.Now().UTC(), Price: price}

	c.mu.Lock()
	b := append(c.buf[currency], s)
	if over := len(b) - c.Size; over > 0 {
		b = append(b[:0:0], b[over:]...)
	}
	c.buf[currency] = b
	c.mu.Unlock()

	if c.OnSample != nil {
		c.OnSample(currency, s)
	}
	return s, nil
}

// Read retorna uma cópia das amostras da moeda, da mais antiga para a mais nova
func (c *Cache) Read(currency string) ([]domain.PriceSample, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.buf[strings.ToLower(currency)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", currency, domain.ErrUnknownCurrency)
	}
	out := make([]domain.PriceSample, len(b))
	copy(out, b)
	return out, nil
}

// Known indica se a moeda já foi inicializada pelo loop de atualização
func (c *Cache) Known(currency string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.buf[strings.ToLower(currency)]
	return ok
}

// RefreshAll atualiza todas as moedas configuradas.
// Uma falha não impede as demais; os erros voltam agregados.
func (c *Cache) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, cur := range c.Currencies {
		if _, err := c.Refresh(ctx, cur); err != nil {
			c.Log.Warn("price refresh failed", zap.String("currency", cur), zap.Error(err))
			if c.OnError != nil {
				c.OnError("price_refresh")
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run executa o loop de atualização até o contexto ser cancelado.
// Ciclos com falha (ou panic) esperam RetryDelay em vez de Interval.
func (c *Cache) Run(ctx context.Context) {
	c.Log.Info("price refresh loop started",
		zap.Strings("currencies", c.Currencies),
		zap.Duration("interval", c.Interval),
	)
	for {
		wait := c.Interval
		if err := c.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.Log.Error("price refresh cycle failed", zap.Error(err))
			wait = c.RetryDelay
		}

		select {
		case <-ctx.Done():
			c.Log.Info("price refresh loop stopped")
			return
		case <-time.After(wait):
		}
	}
}

func (c *Cache) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in price refresh: %v", r)
		}
	}()
	return c.RefreshAll(ctx)
}
