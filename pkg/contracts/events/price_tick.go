package events

import "time"

// Amostra de preço gravada pelo loop de atualização
type PriceTick struct {
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
