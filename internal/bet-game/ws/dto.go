package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Topic: obrigatório para subscribe/unsubscribe (ex: "prices:usd", "settlements")
type ClientMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// Update representa uma mensagem enviada aos clientes inscritos no tópico
type Update struct {
	Type    string      `json:"type"` // price | settlement
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

const TopicSettlements = "settlements"

// TopicPrices retorna o tópico de preços de uma moeda
func TopicPrices(currency string) string { return "prices:" + currency }
