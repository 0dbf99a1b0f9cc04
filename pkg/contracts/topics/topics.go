package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Redis Pub/Sub consumido pelo hub WebSocket de cada instância
	GameBroadcast = "bet_game_broadcast"
)
