package events

import "time"

// Evento emitido pelo loop de liquidação para cada aposta resolvida
type BetSettled struct {
	BetID        string    `json:"bet_id"`
	UserID       string    `json:"user_id"`
	Currency     string    `json:"currency"`
	Direction    string    `json:"direction"`
	Won          bool      `json:"won"`
	Profit       float64   `json:"profit"`
	InitialPrice float64   `json:"initial_price"`
	FinalPrice   float64   `json:"final_price"`
	Ts           time.Time `json:"ts"`
}
