// Package config loads the orchestration engine's configuration using
// Viper, environment-variable-first per the source system's env-driven
// script heritage, with an optional YAML file for local overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the IVR orchestration engine reads at startup.
type Config struct {
	// Recognised keys, unprefixed, take precedence over BELUGA_-prefixed
	// overrides (see LoadConfig).
	PrimaryLanguage    string `mapstructure:"primary_language"`
	SpeechToTextModel  string `mapstructure:"speech_to_text_model"`
	LanguageAutoDetect bool   `mapstructure:"language_auto_detect"`
	AudioSampleRate    int    `mapstructure:"audio_sample_rate"`
	TranslationServices []string `mapstructure:"translation_services"`
	TTSVoiceQuality    string `mapstructure:"tts_voice_quality"`

	// Directory roots, see spec §6 Persistent state layout.
	IVRRoot string `mapstructure:"ivr_root"`

	// DatabaseDSN is the SQLite DSN for the soil/pest/scheme/profile stores.
	DatabaseDSN string `mapstructure:"database_dsn"`

	// AdminAddr is the listen address for internal/adminserver's operator
	// HTTP surface (health, queue depth, last-processed). Empty disables it.
	AdminAddr string `mapstructure:"admin_addr"`

	// Worker pool / concurrency.
	PipelineWorkers     int `mapstructure:"pipeline_workers"`
	MaxConcurrentAgents int `mapstructure:"max_concurrent_agents"`

	// External provider credentials, see spec's out-of-scope collaborators.
	STT struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Model   string `mapstructure:"model"`
	} `mapstructure:"stt"`
	TTS struct {
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"tts"`
	Geocode struct {
		UserAgent string `mapstructure:"user_agent"`
	} `mapstructure:"geocode"`

	// Per-stage timeouts.
	ConversionTimeout   time.Duration `mapstructure:"conversion_timeout"`
	LongRunningSTTTimeout time.Duration `mapstructure:"long_running_stt_timeout"`
	SpecialistDeadline  time.Duration `mapstructure:"specialist_deadline"`
	LLMTimeout          time.Duration `mapstructure:"llm_timeout"`
	StabilityWindow     time.Duration `mapstructure:"stability_window"`
	MaxWait             time.Duration `mapstructure:"max_wait"`

	// Weather specialist thresholds.
	ForecastHorizonDays int     `mapstructure:"forecast_horizon_days"`
	HeatWaveMaxC        float64 `mapstructure:"heat_wave_max_c"`
	HeavyRainMM         float64 `mapstructure:"heavy_rain_mm"`
	DrySpellMM          float64 `mapstructure:"dry_spell_mm"`
	StrongWindKPH       float64 `mapstructure:"strong_wind_kph"`
	SafeFieldWorkWindKPH float64 `mapstructure:"safe_field_work_wind_kph"`
	DefaultGeocode      LatLon  `mapstructure:"default_geocode"`
	Seasons             []SeasonConfig `mapstructure:"seasons"`

	// Scheme specialist.
	SchemeUrgencyHorizonDays int `mapstructure:"scheme_urgency_horizon_days"`

	LLMs struct {
		OpenAI struct {
			APIKey  string `mapstructure:"api_key"`
			BaseURL string `mapstructure:"base_url"`
			Model   string `mapstructure:"model"`
		} `mapstructure:"openai"`
		Anthropic struct {
			APIKey  string `mapstructure:"api_key"`
			BaseURL string `mapstructure:"base_url"`
			Version string `mapstructure:"version"`
			Model   string `mapstructure:"model"`
		} `mapstructure:"anthropic"`
		Ollama struct {
			BaseURL string `mapstructure:"base_url"`
			Model   string `mapstructure:"model"`
		} `mapstructure:"ollama"`
		Bedrock struct {
			Region    string `mapstructure:"region"`
			AccessKey string `mapstructure:"access_key"`
			SecretKey string `mapstructure:"secret_key"`
			ModelID   string `mapstructure:"model_id"`
		} `mapstructure:"bedrock"`
		Provider string `mapstructure:"provider"`
	} `mapstructure:"llms"`
}

// LatLon is a coordinate pair, used for the weather specialist's configured
// geocode-failure fallback.
type LatLon struct {
	Lat float64 `mapstructure:"lat"`
	Lon float64 `mapstructure:"lon"`
}

// StageConfig is a within-season sub-range (sowing/growing/harvest), given
// as 1-indexed calendar months; EndMonth may be less than StartMonth to
// allow wrap across the year boundary.
type StageConfig struct {
	Name       string `mapstructure:"name"`
	StartMonth int    `mapstructure:"start_month"`
	EndMonth   int    `mapstructure:"end_month"`
}

// SeasonConfig is one named cropping season with its within-season stages,
// used by the weather specialist's Generic mode to derive the current
// season and stage from the calendar month.
type SeasonConfig struct {
	Name       string        `mapstructure:"name"`
	StartMonth int           `mapstructure:"start_month"`
	EndMonth   int           `mapstructure:"end_month"`
	Stages     []StageConfig `mapstructure:"stages"`
}

var Cfg Config

// LoadConfig reads configuration from defaults, an optional YAML file, and
// BELUGA_-prefixed environment variables, in that ascending order of
// precedence — except
// that the spec's own unprefixed env var names (PRIMARY_LANGUAGE,
// SPEECH_TO_TEXT_MODEL, LANGUAGE_AUTO_DETECT, AUDIO_SAMPLE_RATE,
// TRANSLATION_SERVICES, TTS_VOICE_QUALITY) always win over a BELUGA_-style
// prefixed override, since the source system is an env-driven script and
// these are its recognised keys.
func LoadConfig(configPaths ...string) error {
	v := viper.New()

	v.SetDefault("ivr_root", "./ivr-data")
	v.SetDefault("database_dsn", "./ivr-data/agri-advisor.db")
	v.SetDefault("admin_addr", ":8090")
	v.SetDefault("stt.model", "whisper-1")
	v.SetDefault("geocode.user_agent", "agri-advisor/1.0")
	v.SetDefault("pipeline_workers", 4)
	v.SetDefault("max_concurrent_agents", 4)
	v.SetDefault("conversion_timeout", 5*time.Minute)
	v.SetDefault("long_running_stt_timeout", 10*time.Minute)
	v.SetDefault("specialist_deadline", 30*time.Second)
	v.SetDefault("llm_timeout", 60*time.Second)
	v.SetDefault("stability_window", 5*time.Second)
	v.SetDefault("max_wait", 120*time.Second)
	v.SetDefault("audio_sample_rate", 16000)
	v.SetDefault("forecast_horizon_days", 16)
	v.SetDefault("heat_wave_max_c", 40.0)
	v.SetDefault("heavy_rain_mm", 50.0)
	v.SetDefault("dry_spell_mm", 2.0)
	v.SetDefault("strong_wind_kph", 40.0)
	v.SetDefault("safe_field_work_wind_kph", 20.0)
	v.SetDefault("scheme_urgency_horizon_days", 14)
	v.SetDefault("seasons", []map[string]any{
		{
			"name": "kharif", "start_month": 6, "end_month": 10,
			"stages": []map[string]any{
				{"name": "sowing", "start_month": 6, "end_month": 7},
				{"name": "growing", "start_month": 7, "end_month": 9},
				{"name": "harvest", "start_month": 9, "end_month": 10},
			},
		},
		{
			"name": "rabi", "start_month": 11, "end_month": 3,
			"stages": []map[string]any{
				{"name": "sowing", "start_month": 11, "end_month": 12},
				{"name": "growing", "start_month": 12, "end_month": 2},
				{"name": "harvest", "start_month": 2, "end_month": 3},
			},
		},
		{
			"name": "zaid", "start_month": 3, "end_month": 6,
			"stages": []map[string]any{
				{"name": "sowing", "start_month": 3, "end_month": 4},
				{"name": "growing", "start_month": 4, "end_month": 5},
				{"name": "harvest", "start_month": 5, "end_month": 6},
			},
		},
	})
	v.SetDefault("llms.openai.model", "gpt-4o")
	v.SetDefault("llms.anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("llms.anthropic.version", "2023-06-01")
	v.SetDefault("llms.ollama.base_url", "http://localhost:11434")
	v.SetDefault("llms.ollama.model", "llama3")
	v.SetDefault("llms.bedrock.region", "us-east-1")
	v.SetDefault("llms.provider", "openai")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/agri-advisor/")
	v.AddConfigPath("$HOME/.agri-advisor")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BELUGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&Cfg); err != nil {
		return fmt.Errorf("config: decode into struct: %w", err)
	}

	applyRecognisedEnvOverrides(&Cfg)

	return nil
}

// applyRecognisedEnvOverrides forces the spec's recognised unprefixed env
// var names to win over anything Viper resolved via BELUGA_ prefixing,
// matching the source system's own script-level env contract.
func applyRecognisedEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("PRIMARY_LANGUAGE"); ok {
		cfg.PrimaryLanguage = v
	}
	if v, ok := lookupEnv("SPEECH_TO_TEXT_MODEL"); ok {
		cfg.SpeechToTextModel = v
	}
	if v, ok := lookupEnv("LANGUAGE_AUTO_DETECT"); ok {
		cfg.LanguageAutoDetect = strings.EqualFold(v, "true")
	}
	if v, ok := lookupEnv("AUDIO_SAMPLE_RATE"); ok {
		var rate int
		if _, err := fmt.Sscanf(v, "%d", &rate); err == nil {
			cfg.AudioSampleRate = rate
		}
	}
	if v, ok := lookupEnv("TRANSLATION_SERVICES"); ok {
		cfg.TranslationServices = strings.Split(v, ",")
		for i := range cfg.TranslationServices {
			cfg.TranslationServices[i] = strings.TrimSpace(cfg.TranslationServices[i])
		}
	}
	if v, ok := lookupEnv("TTS_VOICE_QUALITY"); ok {
		cfg.TTSVoiceQuality = v
	}
}
