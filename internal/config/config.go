package config // package config loads application configuration from environment variables

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// Config holds all runtime configuration of the seat service.  Each field
// corresponds to an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign order access tokens

	OrderTokenTTLMin int    // lifetime of an order access token in minutes
	BrokerURL        string // RabbitMQ URL; empty keeps order updates in-process
	SeatRows         int    // rows per flight cabin
	SeatCols         int    // seats per row
}

// Load reads a .env file when one exists, then builds a Config from the
// environment.  Required variables are enforced by must(); a missing value
// stops the process with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: reading .env: %v", err)
	}
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		OrderTokenTTLMin: envInt("ORDER_TOKEN_TTL_MIN", 120),
		BrokerURL:        brokerURL(),
		SeatRows:         envInt("SEAT_ROWS", 5),
		SeatCols:         envInt("SEAT_COLS", 6),
	}
}

func brokerURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
