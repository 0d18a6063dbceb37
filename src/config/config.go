package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvFileEnvVar        = "SCREEN_TABLE_SCANNER"
	DefaultLanguage      = "eng"
	DefaultDeadlineSec   = 20
	DefaultOutputDir     = "."
	EngineTesseract      = "tesseract"
	EngineGosseract      = "gosseract"
	tesseractPathEnvVar  = "TESSERACT_PATH"
	languageEnvVar       = "OCR_LANGUAGE"
	deadlineEnvVar       = "OCR_DEADLINE_SEC"
	engineEnvVar         = "OCR_ENGINE"
	outputDirEnvVar      = "OUTPUT_DIR"
	fileLoggingEnvVar    = "ENABLE_FILE_LOGGING"
	debugSaveImageEnvVar = "OCR_DEBUG_SAVE_IMAGES"
)

type LoadOptions struct {
	// EnvPathOverride takes precedence over the executable-local .env and
	// the SCREEN_TABLE_SCANNER variable.
	EnvPathOverride string
	EngineOverride  string
}

type Config struct {
	EnvPath           string
	TesseractPath     string
	Language          string
	Engine            string
	OCRDeadlineSec    int
	OutputDir         string
	EnableFileLogging bool
	DebugSaveImages   bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit override path
	// 2) .env in the executable directory
	// 3) SCREEN_TABLE_SCANNER env var as a path to a config file
	// Values already present in the process environment win over the file.
	envPath := resolveEnvPath(opts)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	deadlineSec := DefaultDeadlineSec
	if v := os.Getenv(deadlineEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			deadlineSec = n
		}
	}

	cfg := &Config{
		EnvPath:           envPath,
		TesseractPath:     strings.TrimSpace(os.Getenv(tesseractPathEnvVar)),
		Language:          getEnvWithDefault(languageEnvVar, DefaultLanguage),
		Engine:            resolveEngine(opts),
		OCRDeadlineSec:    deadlineSec,
		OutputDir:         getEnvWithDefault(outputDirEnvVar, DefaultOutputDir),
		EnableFileLogging: strings.ToLower(os.Getenv(fileLoggingEnvVar)) == "true",
		DebugSaveImages:   strings.ToLower(os.Getenv(debugSaveImageEnvVar)) == "true",
	}

	return cfg, nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvPathOverride); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func resolveEngine(opts LoadOptions) string {
	value := os.Getenv(engineEnvVar)
	if override := strings.TrimSpace(opts.EngineOverride); override != "" {
		value = override
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineGosseract:
		return EngineGosseract
	default:
		return EngineTesseract
	}
}
