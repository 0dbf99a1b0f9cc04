package events

// Evento publicado no tópico "bet_placed" quando uma aposta é aceita
type BetPlaced struct {
	BetID      string  `json:"bet_id"`
	UserID     string  `json:"user_id"`
	Currency   string  `json:"currency"`
	Direction  string  `json:"direction"` // "up" | "down"
	PriceAtBet float64 `json:"price_at_bet"`
	Amount     float64 `json:"amount"`
	PlacedAt   int64   `json:"placed_at_unix_ms"`
	MaturesAt  int64   `json:"matures_at_unix_ms"`
}
