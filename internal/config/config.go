// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Transport selects the message bus implementation.
const (
	TransportRedis  = "redis"
	TransportMemory = "memory"
)

// Config holds all runtime configuration for the market simulation.
type Config struct {
	Transport string
	RedisAddr string

	Port     int
	LogLevel string

	// TickInterval is the delay between price random-walk steps.
	TickInterval time.Duration
	// TradeTimeout bounds a broker's wait for the exchange's trade reply.
	TradeTimeout time.Duration

	// Order-flow jitter: a client's first submission waits a delay in
	// [OrderDelayMin, OrderDelayMax), later ones an interval in
	// [OrderIntervalMin, OrderIntervalMax).
	OrderDelayMin    time.Duration
	OrderDelayMax    time.Duration
	OrderIntervalMin time.Duration
	OrderIntervalMax time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. A .env file in the working directory is loaded
// first if present; real environment variables win over it. It returns an
// error for any invalid value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	transport := getStr("TRANSPORT", TransportRedis)
	if transport != TransportRedis && transport != TransportMemory {
		return nil, fmt.Errorf("invalid TRANSPORT: %q, must be one of: redis, memory", transport)
	}

	redisAddr := getStr("REDIS_ADDR", "localhost:6379")

	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}

	tradeTimeout, err := getDuration("TRADE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TRADE_TIMEOUT: %w", err)
	}

	orderDelayMin, err := getDuration("ORDER_DELAY_MIN", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_DELAY_MIN: %w", err)
	}

	orderDelayMax, err := getDuration("ORDER_DELAY_MAX", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_DELAY_MAX: %w", err)
	}

	orderIntervalMin, err := getDuration("ORDER_INTERVAL_MIN", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_INTERVAL_MIN: %w", err)
	}

	orderIntervalMax, err := getDuration("ORDER_INTERVAL_MAX", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_INTERVAL_MAX: %w", err)
	}

	if orderDelayMax < orderDelayMin {
		return nil, fmt.Errorf("ORDER_DELAY_MAX (%v) must not be below ORDER_DELAY_MIN (%v)", orderDelayMax, orderDelayMin)
	}
	if orderIntervalMax < orderIntervalMin {
		return nil, fmt.Errorf("ORDER_INTERVAL_MAX (%v) must not be below ORDER_INTERVAL_MIN (%v)", orderIntervalMax, orderIntervalMin)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Transport:        transport,
		RedisAddr:        redisAddr,
		Port:             port,
		LogLevel:         logLevel,
		TickInterval:     tickInterval,
		TradeTimeout:     tradeTimeout,
		OrderDelayMin:    orderDelayMin,
		OrderDelayMax:    orderDelayMax,
		OrderIntervalMin: orderIntervalMin,
		OrderIntervalMax: orderIntervalMax,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
