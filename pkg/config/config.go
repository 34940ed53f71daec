package config

import "time"

// this holds the resolved configuration values from CLI
var (
	BackendURL    string        // base URL of the FastF1 telemetry backend
	Timeout       time.Duration // per request timeout towards the backend
	ListenAddr    string        // listen addr for the web live map
	Width         int           // viewport width in pixels
	Height        int           // viewport height in pixels
	Padding       float64       // viewport padding in pixels
	Loop          time.Duration // duration of a full replay cycle
	FrameInterval time.Duration // delay between two streamed frames
	CachePath     string        // path of the sqlite payload cache, empty disables it
	CacheTTL      time.Duration // cached payloads older than this are refetched
	TelegramToken string        // enables the Telegram bot when set
	LogLevel      string        // sets the log level (zap log level values)
	LogFormat     string        // text vs json
)
