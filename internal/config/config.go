package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bonecondor/space-weather/internal/models"
)

// KpThresholds are the crossing levels for the planetary K index.
type KpThresholds struct {
	Elevated float64
	Storm    float64
	Major    float64
}

// BzThresholds are southward IMF crossing levels (nT, negative).
type BzThresholds struct {
	Moderate float64
	Strong   float64
}

// WindThresholds are solar wind speed crossing levels (km/s).
type WindThresholds struct {
	Elevated float64
	High     float64
}

// RegionThresholds gate the active-region flare-probability alert.
type RegionThresholds struct {
	MFlareProb float64 // percent
	XFlareProb float64
}

// Thresholds groups every evaluator crossing level.
type Thresholds struct {
	Kp                KpThresholds
	Bz                BzThresholds
	WindSpeed         WindThresholds
	DensityHigh       float64 // protons/cm^3
	ActiveRegion      RegionThresholds
	CMERevisionKpJump float64
}

// QuietHours suppresses non-critical alerts inside a local-time window.
// Start is inclusive, End exclusive; overnight windows have Start > End.
type QuietHours struct {
	Enabled bool
	Start   int
	End     int
}

// Config holds application configuration loaded from environment.
type Config struct {
	Paths struct {
		DataDir         string
		StateFile       string
		PredictionsFile string
		LockFile        string
	}
	Checker struct {
		FetchTimeout       time.Duration
		LockTimeout        time.Duration
		MaxAlertHistory    int
		MaxLogSize         int64
		ActiveRegionAlerts bool
	}
	Thresholds Thresholds
	Cooldowns  map[string]time.Duration
	Channels   map[models.Urgency][]string
	QuietHours QuietHours
	Prediction struct {
		VerificationWindowHours int
		CooldownHours           int
		MaxPredictions          int
	}
	SWPC struct {
		BaseURL        string
		DonkiBaseURL   string
		RequestsPerSec int
	}
	Telegram struct {
		BotToken string
		ChatID   int64
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		From       string
		To         string
	}
	Ntfy struct {
		URL   string
		Topic string
	}
	Signal struct {
		URL        string
		Number     string
		Recipients []string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// DefaultCooldowns maps alert type to its minimum re-emission interval.
// Zero means never suppress.
func DefaultCooldowns() map[string]time.Duration {
	return map[string]time.Duration{
		models.AlertKpThreshold:  180 * time.Minute,
		models.AlertKpElevated:   360 * time.Minute,
		models.AlertBzThreshold:  60 * time.Minute,
		models.AlertWindSpeed:    60 * time.Minute,
		models.AlertWindDensity:  120 * time.Minute,
		models.AlertFlareM:       60 * time.Minute,
		models.AlertFlareX:       0,
		models.AlertCMEEarth:     0,
		models.AlertCMERevision:  60 * time.Minute,
		models.AlertHSSArrival:   240 * time.Minute,
		models.AlertActiveRegion: 360 * time.Minute,
		models.AlertAllClear:     60 * time.Minute,
	}
}

// DefaultChannels is the urgency to delivery-channel routing table.
func DefaultChannels() map[models.Urgency][]string {
	return map[models.Urgency][]string{
		models.UrgencyCritical: {"signal", "desktop"},
		models.UrgencyHigh:     {"signal", "desktop"},
		models.UrgencyModerate: {"desktop"},
		models.UrgencyInfo:     {"desktop"},
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (*Config, error) {
	// Load .env if present
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Paths.DataDir = getEnv("DATA_DIR", "data")
	cfg.Paths.StateFile = getEnv("STATE_FILE", cfg.Paths.DataDir+"/checker-state.json")
	cfg.Paths.PredictionsFile = getEnv("PREDICTIONS_FILE", cfg.Paths.DataDir+"/predictions.json")
	cfg.Paths.LockFile = getEnv("LOCK_FILE", cfg.Paths.DataDir+"/checker.lock")

	cfg.Checker.FetchTimeout = getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second)
	cfg.Checker.LockTimeout = getEnvAsDuration("LOCK_TIMEOUT", 10*time.Minute)
	cfg.Checker.MaxAlertHistory = getEnvAsInt("MAX_ALERT_HISTORY", 100)
	cfg.Checker.MaxLogSize = int64(getEnvAsInt("MAX_LOG_SIZE", 1<<20))
	cfg.Checker.ActiveRegionAlerts = getEnvAsBool("ACTIVE_REGION_ALERTS", true)

	cfg.Thresholds.Kp = KpThresholds{Elevated: 4, Storm: 5, Major: 7}
	cfg.Thresholds.Bz = BzThresholds{Moderate: -10, Strong: -15}
	cfg.Thresholds.WindSpeed = WindThresholds{Elevated: 600, High: 700}
	cfg.Thresholds.DensityHigh = 20
	cfg.Thresholds.ActiveRegion.MFlareProb = getEnvAsFloat("REGION_M_FLARE_PROB", 30)
	cfg.Thresholds.ActiveRegion.XFlareProb = getEnvAsFloat("REGION_X_FLARE_PROB", 10)
	cfg.Thresholds.CMERevisionKpJump = getEnvAsFloat("CME_REVISION_KP_JUMP", 2)

	cfg.Cooldowns = DefaultCooldowns()
	cfg.Channels = DefaultChannels()
	for urgency, key := range map[models.Urgency]string{
		models.UrgencyCritical: "CHANNELS_CRITICAL",
		models.UrgencyHigh:     "CHANNELS_HIGH",
		models.UrgencyModerate: "CHANNELS_MODERATE",
		models.UrgencyInfo:     "CHANNELS_INFO",
	} {
		if v := os.Getenv(key); v != "" {
			cfg.Channels[urgency] = strings.Split(v, ",")
		}
	}

	cfg.QuietHours.Enabled = getEnvAsBool("QUIET_HOURS_ENABLED", false)
	cfg.QuietHours.Start = getEnvAsInt("QUIET_HOURS_START", 23)
	cfg.QuietHours.End = getEnvAsInt("QUIET_HOURS_END", 7)

	cfg.Prediction.VerificationWindowHours = getEnvAsInt("PREDICTION_WINDOW_HOURS", 48)
	cfg.Prediction.CooldownHours = getEnvAsInt("PREDICTION_COOLDOWN_HOURS", 6)
	cfg.Prediction.MaxPredictions = getEnvAsInt("MAX_PREDICTIONS", 500)

	cfg.SWPC.BaseURL = getEnv("SWPC_BASE_URL", "https://services.swpc.noaa.gov")
	cfg.SWPC.DonkiBaseURL = getEnv("DONKI_BASE_URL", "https://kauai.ccmc.gsfc.nasa.gov/DONKI/WS/get")
	cfg.SWPC.RequestsPerSec = getEnvAsInt("SWPC_REQUESTS_PER_SEC", 5)

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}

	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	cfg.Email.SMTPPort = getEnvAsInt("EMAIL_SMTP_PORT", 587)
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.From = os.Getenv("EMAIL_FROM")
	cfg.Email.To = os.Getenv("EMAIL_TO")

	cfg.Ntfy.URL = getEnv("NTFY_URL", "https://ntfy.sh")
	cfg.Ntfy.Topic = os.Getenv("NTFY_TOPIC")

	cfg.Signal.URL = os.Getenv("SIGNAL_API_URL")
	cfg.Signal.Number = os.Getenv("SIGNAL_NUMBER")
	if v := os.Getenv("SIGNAL_RECIPIENTS"); v != "" {
		cfg.Signal.Recipients = strings.Split(v, ",")
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "space-weather.alerts")

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.API.Port = getEnv("API_PORT", ":8080")
	cfg.API.BasePath = getEnv("API_BASE_PATH", "/api/v0")

	cfg.Logging.Dir = getEnv("LOG_DIR", "logs")
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
