package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Hurricane0017/agri-advisor/config"
	"github.com/Hurricane0017/agri-advisor/internal/adminserver"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/delivery"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/orchestrator"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/pipeline"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/specialist"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/watcher"
	"github.com/Hurricane0017/agri-advisor/internal/providers/geocode"
	"github.com/Hurricane0017/agri-advisor/internal/providers/llmclient"
	"github.com/Hurricane0017/agri-advisor/internal/providers/stt"
	"github.com/Hurricane0017/agri-advisor/internal/providers/translate"
	"github.com/Hurricane0017/agri-advisor/internal/providers/tts"
	"github.com/Hurricane0017/agri-advisor/internal/providers/weather"
	"github.com/Hurricane0017/agri-advisor/internal/store"
	"github.com/Hurricane0017/agri-advisor/llm"
	"github.com/Hurricane0017/agri-advisor/o11y"
)

// dirs is the directory layout under cfg.IVRRoot, per spec §6.
type dirs struct {
	Monitor        string
	Converted      string
	Transcripts    string
	Responses      string
	GeneratedAudio string
	Playback       string
	ProcessedLog   string
	ChunkWork      string
}

func layout(root string) dirs {
	return dirs{
		Monitor:        filepath.Join(root, "monitor"),
		Converted:      filepath.Join(root, "recordings", "converted"),
		Transcripts:    filepath.Join(root, "recordings", "transcripts"),
		Responses:      filepath.Join(root, "recordings", "responses"),
		GeneratedAudio: filepath.Join(root, "recordings", "generated_audio"),
		Playback:       filepath.Join(root, "recordings", "playback"),
		ProcessedLog:   filepath.Join(root, "recordings", "processed_files.json"),
		ChunkWork:      filepath.Join(root, "recordings", "chunks"),
	}
}

// validateConfig catches malformed settings before anything is opened or
// dialed — spec's exit code 2 ("misconfiguration") is reserved for exactly
// this: a value that parsed fine but cannot describe a runnable system.
func validateConfig(cfg config.Config) error {
	if cfg.IVRRoot == "" {
		return misconfigf("ivr_root must not be empty")
	}
	if cfg.PipelineWorkers < 0 {
		return misconfigf("pipeline_workers must not be negative, got %d", cfg.PipelineWorkers)
	}
	if cfg.MaxConcurrentAgents < 0 {
		return misconfigf("max_concurrent_agents must not be negative, got %d", cfg.MaxConcurrentAgents)
	}
	if cfg.AudioSampleRate <= 0 {
		return misconfigf("audio_sample_rate must be positive, got %d", cfg.AudioSampleRate)
	}
	return nil
}

func (d dirs) ensure() error {
	for _, dir := range []string{d.Monitor, d.Converted, d.Transcripts, d.Responses, d.GeneratedAudio, d.Playback, d.ChunkWork} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// app bundles every component a subcommand might need, built once from
// config so run/replay/healthcheck share identical wiring.
type app struct {
	cfg    config.Config
	dirs   dirs
	logger *o11y.Logger

	db        *store.DB
	llmModel  llm.ChatModel
	pipeline  *pipeline.Pipeline
	orch      *orchestrator.Orchestrator
	delivery  *delivery.Delivery
	dedup     *watcher.FileDedupStore
	health    *o11y.HealthRegistry

	tracerShutdown func()
}

// buildApp loads config and constructs every component eagerly — failures
// here are startup errors (spec's exit code 1), not deferred runtime ones.
func buildApp(configPaths []string) (*app, error) {
	if err := config.LoadConfig(configPaths...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := config.Cfg

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	d := layout(cfg.IVRRoot)
	if err := d.ensure(); err != nil {
		return nil, err
	}

	logger := o11y.NewLogger()
	if err := o11y.InitMeter("agri-advisor-orchestrator"); err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}
	tracerShutdown, err := o11y.InitTracer("agri-advisor-orchestrator")
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	model, err := llmclient.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm client: %w", err)
	}

	translateChain := translate.ByName(cfg.TranslationServices, cfg.LLMTimeout)

	whisper := stt.NewWhisper(cfg.STT.APIKey, cfg.STT.BaseURL, cfg.STT.Model)
	chunker := pipeline.NewFFmpegChunker(d.ChunkWork)

	pl := &pipeline.Pipeline{
		Converter:           pipeline.NewConverter(cfg.AudioSampleRate, cfg.ConversionTimeout),
		STTProvider:         whisper,
		Chunker:             chunker,
		TranslateChain:      translateChain,
		ConvertedDir:        d.Converted,
		TranscriptsDir:      d.Transcripts,
		LongRunningDeadline: cfg.LongRunningSTTTimeout,
		PrimaryLanguage:     cfg.PrimaryLanguage,
	}

	weatherSpecialist := &specialist.WeatherSpecialist{
		LLM:     model,
		Geocode: geocode.NewNominatim(cfg.Geocode.UserAgent, cfg.LLMTimeout),
		Weather: weather.NewOpenMeteo(cfg.LLMTimeout),
		Cfg:     cfg,
		Logger:  logger,
	}
	soilSpecialist := &specialist.SoilSpecialist{LLM: model, Store: store.NewSoilStore(db)}
	pestSpecialist := &specialist.PestSpecialist{LLM: model, Store: store.NewPestStore(db)}
	schemeSpecialist := &specialist.SchemeSpecialist{LLM: model, Store: store.NewSchemeStore(db), Cfg: cfg}

	registry := specialist.NewRegistry(weatherSpecialist, soilSpecialist, pestSpecialist, schemeSpecialist)

	orch := &orchestrator.Orchestrator{
		LLM:          model,
		ProfileStore: store.NewProfileStore(db),
		Registry:     registry,
		Cfg:          cfg,
	}

	del := &delivery.Delivery{
		TranslateChain:    translateChain,
		TTS:               tts.NewGoogleCloud(cfg.TTS.APIKey, cfg.LLMTimeout),
		Concat:            delivery.NewFFmpegConcatenator(cfg.ConversionTimeout),
		GeneratedAudioDir: d.GeneratedAudio,
		PlaybackDir:       d.Playback,
		ResponsesDir:      d.Responses,
		VoiceQuality:      cfg.TTSVoiceQuality,
		DefaultLanguage:   cfg.PrimaryLanguage,
	}

	dedup, err := watcher.NewFileDedupStore(d.ProcessedLog)
	if err != nil {
		return nil, fmt.Errorf("load processed-id log: %w", err)
	}

	health := o11y.NewHealthRegistry()
	health.Register("database", dbHealthChecker{db: db})
	health.Register("llm", llmHealthChecker{model: model})

	return &app{
		cfg:            cfg,
		dirs:           d,
		logger:         logger,
		db:             db,
		llmModel:       model,
		pipeline:       pl,
		orch:           orch,
		delivery:       del,
		dedup:          dedup,
		health:         health,
		tracerShutdown: tracerShutdown,
	}, nil
}

// adminStats builds the internal/adminserver.Stats closures over a pool's
// live state.
func adminStats(queueDepth func() int, lastProcessed func() (time.Time, bool)) adminserver.Stats {
	return adminserver.Stats{QueueDepth: queueDepth, LastProcessed: lastProcessed}
}
