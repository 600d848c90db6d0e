package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string         `json:"log_level" yaml:"log_level"`
	Scoring  ScoringConfig  `json:"scoring" yaml:"scoring"`
	History  HistoryConfig  `json:"history" yaml:"history"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Ingest   IngestConfig   `json:"ingest" yaml:"ingest"`
	API      APIConfig      `json:"api" yaml:"api"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Alerts   AlertsConfig   `json:"alerts" yaml:"alerts"`
	Stats    StatsConfig    `json:"stats" yaml:"stats"`
}

// ScoringConfig holds the thresholds and point formula inputs for the risk
// engine. All fields have working defaults; validation happens once when the
// engine is constructed, not per assessment.
type ScoringConfig struct {
	VelocityWindow    time.Duration `json:"velocity_window" yaml:"velocity_window"`
	VelocityThreshold int           `json:"velocity_threshold" yaml:"velocity_threshold"`
	AmountMultiplier  float64       `json:"amount_multiplier" yaml:"amount_multiplier"`
	UnusualHourStart  int           `json:"unusual_hour_start" yaml:"unusual_hour_start"`
	UnusualHourEnd    int           `json:"unusual_hour_end" yaml:"unusual_hour_end"`
	RoundLookback     int           `json:"round_lookback" yaml:"round_lookback"`
	RoundUnit         string        `json:"round_unit" yaml:"round_unit"`
	NearbyWatchlist   []string      `json:"nearby_watchlist" yaml:"nearby_watchlist"`
	LocationDenylist  []string      `json:"location_denylist" yaml:"location_denylist"`
	DefaultTimezone   string        `json:"default_timezone" yaml:"default_timezone"`
}

type HistoryConfig struct {
	Lookback      time.Duration `json:"lookback" yaml:"lookback"`
	MaxPerAccount int           `json:"max_per_account" yaml:"max_per_account"`
	MaxAccounts   int           `json:"max_accounts" yaml:"max_accounts"`
}

type PipelineConfig struct {
	ChannelBuffer int           `json:"channel_buffer" yaml:"channel_buffer"`
	DedupeWindow  time.Duration `json:"dedupe_window" yaml:"dedupe_window"`
	AlertCooldown time.Duration `json:"alert_cooldown" yaml:"alert_cooldown"`
}

type IngestConfig struct {
	REST      RESTConfig      `json:"rest" yaml:"rest"`
	TCPStream TCPStreamConfig `json:"tcp_stream" yaml:"tcp_stream"`
	FileTail  FileTailConfig  `json:"file_tail" yaml:"file_tail"`
	Kafka     KafkaConfig     `json:"kafka" yaml:"kafka"`
	Parser    ParserConfig    `json:"parser" yaml:"parser"`
}

type RESTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type TCPStreamConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type FileTailConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	StartAtEnd bool     `json:"start_at_end" yaml:"start_at_end"`
	Files      []string `json:"files" yaml:"files"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type ParserConfig struct {
	Timezone        string `json:"timezone" yaml:"timezone"`
	DefaultCurrency string `json:"default_currency" yaml:"default_currency"`
	DefaultChannel  string `json:"default_channel" yaml:"default_channel"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type AlertsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type StatsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Scoring: ScoringConfig{
			VelocityWindow:    1 * time.Hour,
			VelocityThreshold: 10,
			AmountMultiplier:  3.0,
			UnusualHourStart:  0,
			UnusualHourEnd:    5,
			RoundLookback:     5,
			RoundUnit:         "5",
			DefaultTimezone:   "UTC",
		},
		History: HistoryConfig{
			Lookback:      24 * time.Hour,
			MaxPerAccount: 500,
			MaxAccounts:   10000,
		},
		Pipeline: PipelineConfig{
			ChannelBuffer: 10000,
			DedupeWindow:  5 * time.Minute,
			AlertCooldown: 0,
		},
		Ingest: IngestConfig{
			REST:      RESTConfig{Enabled: true, Addr: ":8080"},
			TCPStream: TCPStreamConfig{Enabled: false, Addr: ":9000"},
			FileTail:  FileTailConfig{Enabled: false, StartAtEnd: true},
			Kafka:     KafkaConfig{Enabled: false},
			Parser:    ParserConfig{Timezone: "UTC", DefaultCurrency: "USD", DefaultChannel: "online"},
		},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:trustpay.db?_pragma=busy_timeout(5000)"},
		Alerts:  AlertsConfig{StoreLimit: 1000},
		Stats:   StatsConfig{StoreLimit: 5000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Scoring.VelocityWindow <= 0 {
		cfg.Scoring.VelocityWindow = 1 * time.Hour
	}
	if cfg.Scoring.RoundUnit == "" {
		cfg.Scoring.RoundUnit = "5"
	}
	if cfg.Scoring.DefaultTimezone == "" {
		cfg.Scoring.DefaultTimezone = "UTC"
	}
	if cfg.History.Lookback <= 0 {
		cfg.History.Lookback = 24 * time.Hour
	}
	if cfg.History.MaxPerAccount <= 0 {
		cfg.History.MaxPerAccount = 500
	}
	if cfg.History.MaxAccounts <= 0 {
		cfg.History.MaxAccounts = 10000
	}
	if cfg.Pipeline.ChannelBuffer <= 0 {
		cfg.Pipeline.ChannelBuffer = 10000
	}
	if cfg.Alerts.StoreLimit <= 0 {
		cfg.Alerts.StoreLimit = 1000
	}
	if cfg.Stats.StoreLimit <= 0 {
		cfg.Stats.StoreLimit = 5000
	}
	if cfg.Ingest.Parser.Timezone == "" {
		cfg.Ingest.Parser.Timezone = "UTC"
	}
	if cfg.Ingest.Parser.DefaultCurrency == "" {
		cfg.Ingest.Parser.DefaultCurrency = "USD"
	}
	if cfg.Ingest.Parser.DefaultChannel == "" {
		cfg.Ingest.Parser.DefaultChannel = "online"
	}
}

func Validate(cfg *Config) error {
	if err := ValidateScoring(cfg.Scoring); err != nil {
		return err
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.REST.Enabled && cfg.Ingest.REST.Addr == "" {
		return errors.New("ingest.rest.addr required when ingest.rest.enabled is true")
	}
	if cfg.Ingest.TCPStream.Enabled && cfg.Ingest.TCPStream.Addr == "" {
		return errors.New("ingest.tcp_stream.addr required when ingest.tcp_stream.enabled is true")
	}
	if cfg.Ingest.FileTail.Enabled && len(cfg.Ingest.FileTail.Files) == 0 {
		return errors.New("ingest.file_tail.files required when ingest.file_tail.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	return nil
}

// ValidateScoring checks the engine thresholds. A zero velocity threshold is
// invalid: it would make the velocity check fire on every transaction.
func ValidateScoring(sc ScoringConfig) error {
	if sc.VelocityWindow <= 0 {
		return fmt.Errorf("scoring.velocity_window must be > 0, got %s", sc.VelocityWindow)
	}
	if sc.VelocityThreshold <= 0 {
		return fmt.Errorf("scoring.velocity_threshold must be > 0, got %d", sc.VelocityThreshold)
	}
	if sc.AmountMultiplier <= 1 {
		return fmt.Errorf("scoring.amount_multiplier must be > 1, got %g", sc.AmountMultiplier)
	}
	if sc.UnusualHourStart < 0 || sc.UnusualHourStart > 23 {
		return fmt.Errorf("scoring.unusual_hour_start out of range: %d", sc.UnusualHourStart)
	}
	if sc.UnusualHourEnd < 0 || sc.UnusualHourEnd > 24 {
		return fmt.Errorf("scoring.unusual_hour_end out of range: %d", sc.UnusualHourEnd)
	}
	if sc.RoundLookback <= 0 {
		return fmt.Errorf("scoring.round_lookback must be > 0, got %d", sc.RoundLookback)
	}
	if sc.DefaultTimezone != "" {
		if _, err := time.LoadLocation(sc.DefaultTimezone); err != nil {
			return fmt.Errorf("scoring.default_timezone: %w", err)
		}
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an already-built config, for callers that do not
// load from a file.
func NewStaticManager(cfg *Config) *Manager {
	m := &Manager{}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if m.path != "" {
		if err := Save(m.path, cfg); err != nil {
			return err
		}
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return nil
}

func (m *Manager) NeedsReload() (bool, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
