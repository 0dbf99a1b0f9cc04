package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaturityWindow é o tempo fixo entre a aposta e a liquidação
const MaturityWindow = 60 * time.Second

// Direction indica o sentido apostado para o preço
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection valida "up" | "down" (case insensitive)
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("bet_type %q: %w", s, ErrInvalidArgument)
	}
}

// PriceSample é uma cotação gravada no cache; imutável após inserida
type PriceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Bet é uma aposta aberta aguardando a janela de maturação
type Bet struct {
	ID         string    `json:"bet_id"`
	UserID     string    `json:"user_id"`
	Currency   string    `json:"currency"`
	Direction  Direction `json:"bet_type"`
	PriceAtBet float64   `json:"price_at_bet"`
	Amount     float64   `json:"bet_amount"`
	PlacedAt   time.Time `json:"timestamp"`
}

// MaturesAt retorna o instante a partir do qual a aposta pode ser liquidada
func (b Bet) MaturesAt() time.Time { return b.PlacedAt.Add(MaturityWindow) }

// Matured indica se a janela de maturação já passou em now
func (b Bet) Matured(now time.Time) bool { return now.Sub(b.PlacedAt) >= MaturityWindow }

// BetOutcome é o resultado de uma aposta liquidada
type BetOutcome struct {
	BetID        string    `json:"bet_id"`
	UserID       string    `json:"user_id"`
	Currency     string    `json:"currency"`
	Direction    Direction `json:"bet_type"`
	Won          bool      `json:"won"`
	Profit       float64   `json:"profit"`
	InitialPrice float64   `json:"initial_price"`
	FinalPrice   float64   `json:"final_price"`
	SettledAt    time.Time `json:"settled_at"`
}

// Settle resolve a aposta contra o preço final. Empate conta como derrota.
// Pagamento fixo 1:1.
func Settle(b Bet, finalPrice float64, at time.Time) BetOutcome {
	won := (finalPrice > b.PriceAtBet && b.Direction == Up) ||
		(finalPrice < b.PriceAtBet && b.Direction == Down)

	profit := -b.Amount
	if won {
		profit = b.Amount
	}

	return BetOutcome{
		BetID:        b.ID,
		UserID:       b.UserID,
		Currency:     b.Currency,
		Direction:    b.Direction,
		Won:          won,
		Profit:       profit,
		InitialPrice: b.PriceAtBet,
		FinalPrice:   finalPrice,
		SettledAt:    at,
	}
}

// UserScore é o placar agregado de um usuário
type UserScore struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"username"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
}

// DefaultDisplayName é o nome usado até o usuário escolher um
func DefaultDisplayName(userID string) string { return "User_" + userID }

// UserStats é a visão detalhada de um usuário no placar
type UserStats struct {
	UserScore
	Total   int     `json:"total_bets"`
	WinRate float64 `json:"win_rate"`
	Rank    int     `json:"rank"`
}
