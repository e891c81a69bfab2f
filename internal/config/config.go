package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"PodcastStudio-admin/internal/models"
)

// BrandVoicePrompts holds versioned editorial preambles for generation prompts.
type BrandVoicePrompts struct {
	CurrentVersion string            `mapstructure:"currentVersion"`
	Versions       map[string]string `mapstructure:"versions"`
}

// PromptConfig groups prompt settings.
type PromptConfig struct {
	BrandVoice BrandVoicePrompts `mapstructure:"brandVoice"`
}

// SchedulerConfig controls the background cron jobs. Empty specs disable a job.
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	PublishCronSpec    string `mapstructure:"publishCronSpec"`
	ModerationCronSpec string `mapstructure:"moderationCronSpec"`
}

// Config is the full application configuration.
type Config struct {
	AppName       string              `mapstructure:"appName"`
	Server        ServerConfig        `mapstructure:"server"`
	GeminiClient  GeminiClientConfig  `mapstructure:"geminiClient"`
	Database      DatabaseConfig      `mapstructure:"database"`
	NAS           NASConfig           `mapstructure:"nas"`
	Resolver      ResolverConfig      `mapstructure:"resolver"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Keywords      KeywordsConfig      `mapstructure:"keywords"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Moderation    ModerationConfig    `mapstructure:"moderation"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Prompts       PromptConfig        `mapstructure:"prompts"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type GeminiClientConfig struct {
	APIKey             string `mapstructure:"apiKey"`
	TextModel          string `mapstructure:"textModel"`
	TranscriptionModel string `mapstructure:"transcriptionModel"`
}

type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	DBName         string `mapstructure:"dbName"`
	MigrationsPath string `mapstructure:"migrationsPath"`
}

// DSN returns the go-sql-driver/mysql data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC", d.User, d.Password, d.Host, d.Port, d.DBName)
}

// MigrateURL returns the golang-migrate database URL.
func (d DatabaseConfig) MigrateURL() string {
	return "mysql://" + d.DSN() + "&multiStatements=true"
}

type NASConfig struct {
	MediaPath string `mapstructure:"mediaPath"`
}

type ResolverConfig struct {
	ProbeTimeout time.Duration `mapstructure:"probeTimeout"`
	PageTimeout  time.Duration `mapstructure:"pageTimeout"`
	FetchTimeout time.Duration `mapstructure:"fetchTimeout"`
	UserAgent    string        `mapstructure:"userAgent"`
}

// MaxInlineAudioBytes is the provider's cap on one inline request, prompt included.
const MaxInlineAudioBytes = 20_000_000

type TranscriptionConfig struct {
	ChunkBytes int `mapstructure:"chunkBytes"`
}

type KeywordsConfig struct {
	MaxTranscriptChars int `mapstructure:"maxTranscriptChars"`
}

type GenerationConfig struct {
	DefaultContentTypes []string `mapstructure:"defaultContentTypes"`
	MaxTranscriptChars  int      `mapstructure:"maxTranscriptChars"`
}

// ContentTypes parses DefaultContentTypes.
func (g GenerationConfig) ContentTypes() ([]models.ContentType, error) {
	return models.ParseContentTypes(g.DefaultContentTypes)
}

type ModerationConfig struct {
	ApproveThreshold int `mapstructure:"approveThreshold"`
}

type PipelineConfig struct {
	AutoModerate bool `mapstructure:"autoModerate"`
}

// Load reads configPath/configName.yaml (optional), environment variables and defaults.
func Load(configPath string, configName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("WARN: [Config] config file not found, using defaults and environment.")
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"geminiClient.apiKey", "database.password", "database.user"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.GeminiClient.APIKey == "" {
		log.Println("WARN: [Config] Gemini API key is not set!")
	}
	if !v.IsSet("prompts.brandVoice.currentVersion") {
		log.Println("WARN: [Config] brand voice prompt uses the built-in default version.")
	}
	log.Println("INFO: [Config] configuration loaded.")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "PodcastStudio-admin")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("geminiClient.textModel", "gemini-1.5-flash-latest")
	v.SetDefault("geminiClient.transcriptionModel", "gemini-1.5-flash-latest")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.migrationsPath", "file://scripts/migrate/mysql")
	v.SetDefault("nas.mediaPath", "./media")
	v.SetDefault("resolver.probeTimeout", 15*time.Second)
	v.SetDefault("resolver.pageTimeout", 15*time.Second)
	v.SetDefault("resolver.fetchTimeout", 120*time.Second)
	v.SetDefault("resolver.userAgent", "Mozilla/5.0 (compatible; PodcastStudio/1.0)")
	v.SetDefault("transcription.chunkBytes", 15*1024*1024)
	v.SetDefault("keywords.maxTranscriptChars", 12000)
	v.SetDefault("generation.defaultContentTypes", []string{"article", "blog", "social", "newsletter", "clips", "seo"})
	v.SetDefault("generation.maxTranscriptChars", 30000)
	v.SetDefault("moderation.approveThreshold", 75)
	v.SetDefault("pipeline.autoModerate", true)
	v.SetDefault("prompts.brandVoice.currentVersion", "default-v1")
	v.SetDefault("prompts.brandVoice.versions.default-v1", "You write for an independent podcast network. Be accurate to the episode, conversational and specific.")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.publishCronSpec", "0 */5 * * * *")
	v.SetDefault("scheduler.moderationCronSpec", "")
}

// Validate checks value ranges that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("config error: unsupported database driver %q", c.Database.Driver)
	}
	if c.Moderation.ApproveThreshold < 0 || c.Moderation.ApproveThreshold > 100 {
		return fmt.Errorf("config error: moderation.approveThreshold must be within 0-100, got %d", c.Moderation.ApproveThreshold)
	}
	if c.Transcription.ChunkBytes <= 0 || c.Transcription.ChunkBytes >= MaxInlineAudioBytes {
		return fmt.Errorf("config error: transcription.chunkBytes must be within 1-%d, got %d", MaxInlineAudioBytes-1, c.Transcription.ChunkBytes)
	}
	if _, err := c.Generation.ContentTypes(); err != nil {
		return fmt.Errorf("config error: generation.defaultContentTypes: %w", err)
	}
	return nil
}

// BrandVoice returns the active preamble and its version key.
func (c *Config) BrandVoice() (text string, version string) {
	version = c.Prompts.BrandVoice.CurrentVersion
	text, ok := c.Prompts.BrandVoice.Versions[version]
	if !ok || strings.TrimSpace(text) == "" {
		log.Printf("WARN: [Config] brand voice version '%s' not found or empty, generating without preamble.", version)
		return "", "none"
	}
	return text, version
}
