package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	ctopics "github.com/radieske/btc-bet-game/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução do serviço
// Inclui conexões opcionais, tópicos, canais, URLs, portas e intervalos dos loops
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // ex: "bet-game-service"
	LogLevel    string // debug|info|warn|error; vazio usa o default do ambiente

	// Dependências opcionais: vazias desativam o recurso
	RedisAddr    string
	KafkaBrokers string // "a:9092,b:9092"

	// Tópicos/canais
	TopicBetPlaced     string
	TopicBetSettled    string
	RedisPubSubChannel string

	// API externa de cotações (compatível com CoinGecko simple/price)
	PriceAPIURL    string
	PriceAPIKey    string
	PriceCoinID    string
	PriceTimeout   time.Duration
	Currencies     []string
	PriceCacheSize int

	// Loops em background
	PriceRefreshInterval time.Duration
	PriceRetryDelay      time.Duration
	SettleInterval       time.Duration

	// Quantidade máxima de resultados mantidos em memória (0 = sem limite)
	OutcomeRetention int

	AllowedOrigins []string

	// Portas do serviço
	HTTPPort    string // API pública
	MetricsPort string // Porta exclusiva para /metrics e /healthz
}

// Load carrega o .env (se existir) e as variáveis de ambiente, aplicando defaults
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("ENV", "local"),
		ServiceName: getEnv("SERVICE_NAME", "bet-game-service"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),

		TopicBetPlaced:     getEnv("KAFKA_TOPIC_BET_PLACED", ctopics.BetPlaced),
		TopicBetSettled:    getEnv("KAFKA_TOPIC_BET_SETTLED", ctopics.BetSettled),
		RedisPubSubChannel: getEnv("REDIS_PUBSUB_CHANNEL", ctopics.GameBroadcast),

		PriceAPIURL:    getEnv("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
		PriceAPIKey:    getEnv("PRICE_API_KEY", ""),
		PriceCoinID:    getEnv("PRICE_COIN_ID", "bitcoin"),
		PriceTimeout:   getDuration("PRICE_TIMEOUT", 10*time.Second),
		Currencies:     getList("CURRENCIES", []string{"usd", "eur", "gbp"}),
		PriceCacheSize: getPositiveInt("PRICE_CACHE_SIZE", 12),

		// 15s respeita o rate limit público da CoinGecko
		PriceRefreshInterval: getDuration("PRICE_REFRESH_INTERVAL", 15*time.Second),
		PriceRetryDelay:      getDuration("PRICE_RETRY_DELAY", 5*time.Second),
		SettleInterval:       getDuration("SETTLE_INTERVAL", 5*time.Second),

		OutcomeRetention: getInt("OUTCOME_RETENTION", 10000),

		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		HTTPPort:    getEnv("HTTP_PORT", "8000"),
		MetricsPort: getEnv("METRICS_PORT", "9095"),
	}
}

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// getPositiveInt é getInt sem aceitar zero
func getPositiveInt(key string, def int) int {
	if n := getInt(key, def); n > 0 {
		return n
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// getList lê uma lista separada por vírgula, normalizando para minúsculas
func getList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
