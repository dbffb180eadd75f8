package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the API server and the voice client.
// Values come from the environment, optionally seeded from a .env file in
// the working directory.
type Config struct {
	DatabaseURL   string
	Port          string
	NotifyChannel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	ReportModel      string
	SuggestModel     string
	ReportMaxTokens  int
	SuggestMaxTokens int

	APIBaseURL    string
	VoiceAgentURL string
	VoiceAPIKey   string
	ReportTimeout time.Duration
	RedirectDelay time.Duration
}

// Load reads .env (if present) and then the environment.  Missing values
// fall back to defaults; nothing here is validated because each binary only
// needs a subset.
func Load() Config {
	_ = godotenv.Load()

	reportModel := getenv("OPENAI_MODEL_REPORT", "gpt-3.5-turbo")
	return Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Port:          getenv("PORT", "8080"),
		NotifyChannel: getenv("POSTGRES_NOTIFY_CHANNEL", "report_ready"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		ReportModel:      reportModel,
		SuggestModel:     getenv("OPENAI_MODEL_SUGGEST", reportModel),
		ReportMaxTokens:  getint("OPENAI_REPORT_MAX_TOKENS", 500),
		SuggestMaxTokens: getint("OPENAI_SUGGEST_MAX_TOKENS", 200),

		APIBaseURL:    strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8080"), "/"),
		VoiceAgentURL: os.Getenv("VOICE_AGENT_URL"),
		VoiceAPIKey:   os.Getenv("VOICE_API_KEY"),
		ReportTimeout: getduration("REPORT_TIMEOUT", 30*time.Second),
		RedirectDelay: getduration("REDIRECT_DELAY", 5*time.Second),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getduration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
