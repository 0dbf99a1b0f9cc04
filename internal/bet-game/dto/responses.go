package dto

import (
	"time"

	"github.com/radieske/btc-bet-game/internal/bet-game/domain"
)

type PricesResponse struct {
	Currency string               `json:"currency"`
	Prices   []domain.PriceSample `json:"prices"`
}

type PlaceBetResponse struct {
	BetID      string    `json:"bet_id"`
	Message    string    `json:"message"`
	PriceAtBet float64   `json:"price_at_bet"`
	Timestamp  time.Time `json:"timestamp"`
}

type ActiveBetResponse struct {
	Status        string     `json:"status"` // active
	BetDetails    domain.Bet `json:"bet_details"`
	TimeRemaining int        `json:"time_remaining"` // segundos
}

type CompletedBetResponse struct {
	Status string            `json:"status"` // completed
	Result domain.BetOutcome `json:"result"`
}

type UserBetsResponse struct {
	ActiveBets    map[string]domain.Bet        `json:"active_bets"`
	CompletedBets map[string]domain.BetOutcome `json:"completed_bets"`
}

type LeaderboardResponse struct {
	Leaderboard []domain.UserScore `json:"leaderboard"`
	TotalUsers  int                `json:"total_users"`
	LastUpdated time.Time          `json:"last_updated"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ForgetUserResponse struct {
	Message              string `json:"message"`
	UserID               string `json:"user_id"`
	ActiveBetsRemoved    int    `json:"active_bets_removed"`
	CompletedBetsRemoved int    `json:"completed_bets_removed"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
