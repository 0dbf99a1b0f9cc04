package producer

import (
	"context"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
	"github.com/radieske/btc-bet-game/internal/shared/kafka"
	"github.com/radieske/btc-bet-game/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do ciclo de vida das apostas
type KafkaPublisher struct {
	Placed  *kafka.Writer
	Settled *kafka.Writer
}

func NewKafkaPublisher(placed, settled *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Placed: placed, Settled: settled}
}

// PublishBetPlaced envia bet_placed com chave = betID
func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, b domain.Bet) error {
	return kafka.WriteJSON(ctx, p.Placed, b.ID, BetPlacedEvent(b))
}

// PublishBetSettled envia bet_settled com chave = betID
func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, o domain.BetOutcome) error {
	return kafka.WriteJSON(ctx, p.Settled, o.BetID, BetSettledEvent(o))
}

// Close finaliza os writers
func (p *KafkaPublisher) Close() error {
	err := p.Placed.Close()
	if serr := p.Settled.Close(); err == nil {
		err = serr
	}
	return err
}

func BetPlacedEvent(b domain.Bet) events.BetPlaced {
	return events.BetPlaced{
		BetID:      b.ID,
		UserID:     b.UserID,
		Currency:   b.Currency,
		Direction:  string(b.Direction),
		PriceAtBet: b.PriceAtBet,
		Amount:     b.Amount,
		PlacedAt:   b.PlacedAt.UnixMilli(),
		MaturesAt:  b.MaturesAt().UnixMilli(),
	}
}

func BetSettledEvent(o domain.BetOutcome) events.BetSettled {
	return events.BetSettled{
		BetID:        o.BetID,
		UserID:       o.UserID,
		Currency:     o.Currency,
		Direction:    string(o.Direction),
		Won:          o.Won,
		Profit:       o.Profit,
		InitialPrice: o.InitialPrice,
		FinalPrice:   o.FinalPrice,
		Ts:           o.SettledAt,
	}
}

// PriceTickEvent é o payload enviado aos clientes WebSocket a cada amostra
func PriceTickEvent(currency string, s domain.PriceSample) events.PriceTick {
	return events.PriceTick{Currency: currency, Price: s.Price, Timestamp: s.Timestamp}
}
