package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

// PriceMirror replica as amostras de preço em listas Redis ("prices:{currency}"),
// limitadas ao mesmo tamanho do cache em memória. Somente leitura para outros serviços.
type PriceMirror struct {
	Client *redis.Client
	Size   int64
}

// NewPriceMirror limita a lista a pelo menos uma amostra; LTRIM com 0 não cortaria nada
func NewPriceMirror(c *redis.Client, size int) *PriceMirror {
	if size < 1 {
		size = 1
	}
	return &PriceMirror{Client: c, Size: int64(size)}
}

// key gera a chave Redis da série de preços de uma moeda
func key(currency string) string { return "prices:" + currency }

// Push grava a amostra no fim da lista e descarta as mais antigas
func (m *PriceMirror) Push(ctx context.Context, currency string, s domain.PriceSample) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := m.Client.TxPipeline()
	pipe.RPush(ctx, key(currency), b)
	pipe.LTrim(ctx, key(currency), -m.Size, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: mirror price %s: %w", currency, err)
	}
	return nil
}
