// Package config loads service configuration from an optional YAML file
// and environment variables, with defaults matching a single-user
// deployment on one machine.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds every tunable of the service. All fields can be set via
// environment variables (upper snake case, e.g. API_PORT, QDRANT_HOST)
// or a YAML config file.
type Config struct {
	// HTTP surface
	APIHost string `koanf:"api_host"`
	APIPort int    `koanf:"api_port"`

	// LLM inference server (OpenAI-compatible)
	LLMBaseURL     string  `koanf:"llm_base_url"`
	LLMModel       string  `koanf:"llm_model"`
	LLMAPIKey      string  `koanf:"llm_api_key"`
	LLMTimeoutSecs int     `koanf:"llm_timeout_secs"`
	LLMTemperature float64 `koanf:"llm_temperature"`
	LLMMaxTokens   int     `koanf:"llm_max_tokens"`

	// Embedding server (OpenAI-compatible /embeddings)
	EmbeddingBaseURL   string `koanf:"embedding_base_url"`
	EmbeddingModel     string `koanf:"embedding_model"`
	EmbeddingDimension int    `koanf:"embedding_dimension"`

	// ASR server (OpenAI-compatible /audio/transcriptions)
	ASRBaseURL string `koanf:"asr_base_url"`
	ASRModel   string `koanf:"asr_model"`

	// NER sidecar
	NERBaseURL       string  `koanf:"ner_base_url"`
	NERMinConfidence float64 `koanf:"ner_min_confidence"`

	// Qdrant
	QdrantHost       string `koanf:"qdrant_host"`
	QdrantPort       int    `koanf:"qdrant_port"`
	QdrantCollection string `koanf:"qdrant_collection"`

	// Graph store (bolt)
	GraphURI      string `koanf:"graph_uri"`
	GraphUser     string `koanf:"graph_user"`
	GraphPassword string `koanf:"graph_password"`
	GraphName     string `koanf:"graph_name"`

	// Memory store
	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`

	// Chat loop
	WorkingMemorySize    int `koanf:"working_memory_size"`
	CompressionThreshold int `koanf:"compression_threshold"`
	CompressionKeep      int `koanf:"compression_keep"`
	DailySummaryInterval int `koanf:"daily_summary_interval"`
	CoreMemoryInterval   int `koanf:"core_memory_interval"`
	MaxToolIterations    int `koanf:"max_tool_iterations"`

	// Ingestion
	ChunkMaxTokens        int     `koanf:"chunk_max_tokens"`
	ChunkOverlapTokens    int     `koanf:"chunk_overlap_tokens"`
	ExtractMaxTokens      int     `koanf:"extract_max_tokens"`
	ExtractOverlapTokens  int     `koanf:"extract_overlap_tokens"`
	SelfRAGThreshold      float64 `koanf:"self_rag_threshold"`
	PersonThreshold       float64 `koanf:"entity_resolution_person_threshold"`
	DefaultThreshold      float64 `koanf:"entity_resolution_default_threshold"`
	GraphMaxHops          int     `koanf:"graph_max_hops"`
	FileUploadTimeoutSecs int     `koanf:"file_upload_timeout_secs"`

	// Time
	TimezoneOffsetHours int `koanf:"timezone_offset_hours"`

	// Productivity
	SprintDefaultWeeks   int    `koanf:"sprint_default_weeks"`
	EnergyPeakHours      string `koanf:"energy_peak_hours"`
	EnergyLowHours       string `koanf:"energy_low_hours"`
	WorkDayStart         int    `koanf:"work_day_start"`
	WorkDayEnd           int    `koanf:"work_day_end"`
	DefaultEnergyProfile string `koanf:"default_energy_profile"`
	TimeBlockSlotMinutes int    `koanf:"time_block_slot_minutes"`

	// Prayer settings (reminder tagging)
	PrayerCity          string `koanf:"prayer_city"`
	PrayerCountry       string `koanf:"prayer_country"`
	PrayerMethod        int    `koanf:"prayer_method"`
	PrayerOffsetMinutes int    `koanf:"prayer_offset_minutes"`

	// Scheduler
	MorningHour           int `koanf:"morning_hour"`
	NoonHour              int `koanf:"noon_hour"`
	EveningHour           int `koanf:"evening_hour"`
	ReminderCheckMinutes  int `koanf:"reminder_check_minutes"`
	AlertCheckHours       int `koanf:"alert_check_hours"`
	StalledProjectDays    int `koanf:"stalled_project_days"`
	OldDebtDays           int `koanf:"old_debt_days"`
	InventoryUnusedDays   int `koanf:"inventory_unused_days"`
	InventoryReportTopN   int `koanf:"inventory_report_top_n"`
	BackupHour            int `koanf:"backup_hour"`
	BackupRetentionDays   int `koanf:"backup_retention_days"`
	JobTimeoutSecs        int `koanf:"job_timeout_secs"`
	NotifyURL             string `koanf:"notify_url"`

	// Storage layout
	DataDir string `koanf:"data_dir"`

	// Logging
	LogLevel string `koanf:"log_level"`
}

func defaults() map[string]any {
	return map[string]any{
		"api_host": "0.0.0.0",
		"api_port": 8500,

		"llm_base_url":     "http://localhost:8000/v1",
		"llm_model":        "qwen2.5-32b-instruct",
		"llm_timeout_secs": 60,
		"llm_temperature":  0.3,
		"llm_max_tokens":   2048,

		"embedding_base_url":  "http://localhost:8001/v1",
		"embedding_model":     "bge-m3",
		"embedding_dimension": 1024,

		"asr_base_url": "http://localhost:8002/v1",
		"asr_model":    "whisper-large-v3",

		"ner_base_url":       "http://localhost:8003",
		"ner_min_confidence": 0.7,

		"qdrant_host":       "localhost",
		"qdrant_port":       6334,
		"qdrant_collection": "personal_life",

		"graph_uri":      "bolt://localhost:7687",
		"graph_user":     "",
		"graph_password": "",
		"graph_name":     "personal_life",

		"redis_addr": "localhost:6380",
		"redis_db":   0,

		"working_memory_size":    4,
		"compression_threshold":  15,
		"compression_keep":       4,
		"daily_summary_interval": 10,
		"core_memory_interval":   20,
		"max_tool_iterations":    3,

		"chunk_max_tokens":                    1500,
		"chunk_overlap_tokens":                150,
		"extract_max_tokens":                  3000,
		"extract_overlap_tokens":              200,
		"self_rag_threshold":                  0.3,
		"entity_resolution_person_threshold":  0.85,
		"entity_resolution_default_threshold": 0.80,
		"graph_max_hops":                      3,
		"file_upload_timeout_secs":            120,

		"timezone_offset_hours": 3,

		"sprint_default_weeks":    2,
		"energy_peak_hours":       "7-12",
		"energy_low_hours":        "14-16",
		"work_day_start":          7,
		"work_day_end":            22,
		"default_energy_profile":  "normal",
		"time_block_slot_minutes": 30,

		"prayer_city":           "Riyadh",
		"prayer_country":        "Saudi Arabia",
		"prayer_method":         4,
		"prayer_offset_minutes": 0,

		"morning_hour":           7,
		"noon_hour":              13,
		"evening_hour":           21,
		"reminder_check_minutes": 30,
		"alert_check_hours":      6,
		"stalled_project_days":   14,
		"old_debt_days":          30,
		"inventory_unused_days":  90,
		"inventory_report_top_n": 10,
		"backup_hour":            3,
		"backup_retention_days":  30,
		"job_timeout_secs":       120,
		"notify_url":             "",

		"data_dir": "data",

		"log_level": "info",
	}
}

// Load builds the configuration. Precedence: defaults < YAML file (if
// path is non-empty and the file exists) < environment variables.
func Load(path string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values that would make the service misbehave at
// runtime in ways hard to trace back to configuration.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api_port: %d", c.APIPort)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("invalid embedding_dimension: %d", c.EmbeddingDimension)
	}
	if c.ChunkOverlapTokens >= c.ChunkMaxTokens {
		return fmt.Errorf("chunk_overlap_tokens (%d) must be smaller than chunk_max_tokens (%d)",
			c.ChunkOverlapTokens, c.ChunkMaxTokens)
	}
	if c.PersonThreshold < 0 || c.PersonThreshold > 1 ||
		c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return fmt.Errorf("entity resolution thresholds must be in [0,1]")
	}
	if c.GraphMaxHops < 1 {
		return fmt.Errorf("graph_max_hops must be at least 1")
	}
	return nil
}
