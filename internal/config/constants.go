package config

import "time"

// Application constants
const (
	AppName    = "FuelPulse"
	AppVersion = "1.0.0"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
	DefaultQueryTimeout = 10 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultExportsDir = "data/exports"
	DefaultSourcePath = "data/prices.csv"

	DefaultSourceTable = "market_prices"

	// WebSocket message limits
	MaxWebSocketMessageSize = 512 * 1024
	WebSocketWriteWait      = 10 * time.Second
)
