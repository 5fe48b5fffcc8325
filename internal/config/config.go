package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "REMINDBOT"

type Config struct {
	HTTPPort string

	TelegramBotToken string
	// DefaultChatID is the destination used when a reminder is scheduled
	// through the API without an originating chat.
	DefaultChatID string

	StorageBackend string // "memory" or "firestore"

	GCPProjectID string
	GCPLocation  string
	ModelName    string
	UseMockLLM   bool

	// Timezone drives all schedule-time arithmetic. One zone for the
	// whole process.
	Timezone string

	WorkerCount int
	QueueSize   int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")

	v.SetDefault("storage.backend", "memory")

	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.location", "us-central1")
	v.SetDefault("llm.model", "gemini-2.5-flash-lite")
	v.SetDefault("llm.use_mock", false)

	v.SetDefault("timezone", "Europe/Madrid")

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.queue_size", 64)
}

// Load reads the optional config file plus REMINDBOT_* env vars and builds
// the config. cfgFile may be empty.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile = strings.TrimSpace(cfgFile); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	cfg := &Config{
		HTTPPort:         v.GetString("http.port"),
		TelegramBotToken: v.GetString("telegram.bot_token"),
		DefaultChatID:    v.GetString("telegram.chat_id"),
		StorageBackend:   v.GetString("storage.backend"),
		GCPProjectID:     v.GetString("gcp.project"),
		GCPLocation:      v.GetString("gcp.location"),
		ModelName:        v.GetString("llm.model"),
		UseMockLLM:       v.GetBool("llm.use_mock"),
		Timezone:         v.GetString("timezone"),
		WorkerCount:      v.GetInt("worker.count"),
		QueueSize:        v.GetInt("worker.queue_size"),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.StorageBackend != "memory" && c.StorageBackend != "firestore" {
		return fmt.Errorf("storage.backend must be memory or firestore, got %q", c.StorageBackend)
	}
	if c.StorageBackend == "firestore" && c.GCPProjectID == "" {
		return fmt.Errorf("gcp.project is required for the firestore backend")
	}
	if !c.UseMockLLM && c.GCPProjectID == "" {
		return fmt.Errorf("gcp.project is required unless llm.use_mock is set")
	}
	if !c.UseMockLLM && c.TelegramBotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	return nil
}
