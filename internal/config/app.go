package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App — конфигурация процесса целиком.
type App struct {
	DB DBConfig `ignored:"true"`

	// Network
	GRPCAddr string `envconfig:"CORE_GRPC_ADDR" default:":50051"`
	HTTPAddr string `envconfig:"CORE_HTTP_ADDR" default:":8080"`

	// JWT для HTTP API; пустой секрет отключает HTTP API.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Лимит мутирующих запросов на пользователя.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	RateLimitBurst     int `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// RabbitMQ; пустой URL отключает публикацию и приём событий.
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`
	PaymentQueue    string `envconfig:"BOOKING_PAYMENT_QUEUE" default:"booking.payment.q"`

	// Часовой пояс, в котором трактуются даты и время броней.
	TimeZone string `envconfig:"BOOKING_TIMEZONE" default:"UTC"`
	// Отклонять брони, окно которых уже началось.
	FutureStartOnly bool `envconfig:"BOOKING_FUTURE_START_ONLY" default:"false"`

	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"reservation-core"`
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*App, error) {
	_ = godotenv.Load()

	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	db, err := LoadDBConfig()
	if err != nil {
		return nil, err
	}
	cfg.DB = *db

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *App) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}
