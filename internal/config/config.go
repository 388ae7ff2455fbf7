package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Manual review modes.
const (
	ReviewAsk = "ask"
	ReviewYes = "yes"
	ReviewNo  = "no"
)

type Config struct {
	Data     DataConfig
	ASR      ASRConfig
	Labels   LabelConfig
	Review   ReviewConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
}

type DataConfig struct {
	InputDir      string
	RejectionsDir string
	UnknownMarker string
	SortSamples   bool
}

type ASRConfig struct {
	Backend      string
	ModelPath    string
	LocalURL     string
	Lang         string
	OpenAIKey    string
	OpenAIModel  string
	OpenAIURL    string
	VADThreshold float64
	Timeout      time.Duration
}

type LabelConfig struct {
	AliasesFile string
	Aliases     map[string][]string
	Phonetic    bool
}

type ReviewConfig struct {
	Mode  string
	Pause time.Duration
}

// DatabaseConfig enables the decision journal when Host is set.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// ServerConfig enables the status/metrics endpoint when Addr is set.
type ServerConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
	File  string
}

// Load reads the configuration. It does not validate, so that command-line
// overrides can be applied first; callers run Validate afterwards.
func Load(envFile string) (*Config, error) {
	// a missing .env is fine, the environment may carry everything
	godotenv.Load(envFile)

	cfg := &Config{
		Data: DataConfig{
			InputDir:      getEnv("INPUT_DIR", "input"),
			RejectionsDir: getEnv("REJECTIONS_DIR", "rejections"),
			UnknownMarker: getEnv("UNKNOWN_MARKER", "unknown"),
			SortSamples:   getEnvBool("SORT_SAMPLES", false),
		},
		ASR: ASRConfig{
			Backend:      strings.ToLower(getEnv("ASR_BACKEND", "native")),
			ModelPath:    getEnv("WHISPER_MODEL_PATH", ""),
			LocalURL:     getEnv("WHISPER_LOCAL_URL", ""),
			Lang:         getEnv("WHISPER_LANG", "en"),
			OpenAIKey:    getEnv("WHISPER_OPENAI_KEY", ""),
			OpenAIModel:  getEnv("WHISPER_OPENAI_MODEL", "whisper-1"),
			OpenAIURL:    getEnv("WHISPER_OPENAI_URL", ""),
			VADThreshold: getEnvFloat("VAD_THRESHOLD", 0.01),
			Timeout:      getEnvDuration("ASR_TIMEOUT", 300*time.Second),
		},
		Labels: LabelConfig{
			AliasesFile: getEnv("LABEL_ALIASES", ""),
			Phonetic:    getEnvBool("PHONETIC_MATCH", false),
		},
		Review: ReviewConfig{
			Mode:  strings.ToLower(getEnv("MANUAL_REVIEW", ReviewAsk)),
			Pause: getEnvDuration("REVIEW_PAUSE", 500*time.Millisecond),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "curator"),
		},
		Server: ServerConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if cfg.Labels.AliasesFile != "" {
		aliases, err := LoadAliases(cfg.Labels.AliasesFile)
		if err != nil {
			return nil, err
		}
		cfg.Labels.Aliases = aliases
	}

	return cfg, nil
}

// Validate checks the values that cannot fall back to a default.
func (c *Config) Validate() error {
	switch c.ASR.Backend {
	case "native":
		if c.ASR.ModelPath == "" {
			return fmt.Errorf("config: WHISPER_MODEL_PATH is required for the native backend")
		}
	case "local":
		if c.ASR.LocalURL == "" {
			return fmt.Errorf("config: WHISPER_LOCAL_URL is required for the local backend")
		}
	case "openai":
		if c.ASR.OpenAIKey == "" {
			return fmt.Errorf("config: WHISPER_OPENAI_KEY is required for the openai backend")
		}
	default:
		return fmt.Errorf("config: unknown ASR_BACKEND %q (native, local, openai)", c.ASR.Backend)
	}

	switch c.Review.Mode {
	case ReviewAsk, ReviewYes, ReviewNo:
	default:
		return fmt.Errorf("config: MANUAL_REVIEW must be ask, yes or no, got %q", c.Review.Mode)
	}

	if c.Data.InputDir == "" || c.Data.RejectionsDir == "" {
		return fmt.Errorf("config: INPUT_DIR and REJECTIONS_DIR must not be empty")
	}
	return nil
}

// LoadAliases reads a YAML mapping of label to accepted spoken words:
//
//	zero: [oh, nought]
//	two: [to, too]
func LoadAliases(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read label aliases: %w", err)
	}
	var aliases map[string][]string
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("config: parse label aliases %s: %w", path, err)
	}
	return aliases, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
