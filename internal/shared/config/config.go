package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"pathprobe/internal/shared/types"
)

const (
	DefaultPort         = 3000
	DefaultRoot         = "."
	DefaultMaxLineBytes = 8192
	DefaultReadBuffer   = 4096
)

// Default returns the configuration used when no ini file is present.
func Default() *types.Config {
	return &types.Config{
		LocalConf: types.LocalConf{
			Port: DefaultPort,
		},
		ProbeConf: types.ProbeConf{
			Root:         DefaultRoot,
			Framing:      types.FramingLine,
			MaxLineBytes: DefaultMaxLineBytes,
			ReadBuffer:   DefaultReadBuffer,
		},
		LogConf: types.LogConf{
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// LoadIni 加载 pathprobe.ini 到 cfg 上。
// Keys missing from the file keep whatever value cfg already holds, so callers
// normally pass Default(). A missing file is not an error.
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat config file: %w", err)
		}
	} else {
		iniFile, err := ini.Load(fileName)
		if err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := iniFile.MapTo(cfg); err != nil {
			return fmt.Errorf("failed to map config file: %w", err)
		}
	}

	overrideFromEnvInt(&cfg.LocalConf.Port, "PORT")
	overrideFromEnvString(&cfg.ProbeConf.Root, "PROBE_ROOT")

	return Validate(cfg)
}

// Validate rejects values the gateway cannot run with.
func Validate(cfg *types.Config) error {
	if cfg.LocalConf.Port < 0 || cfg.LocalConf.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.LocalConf.Port)
	}
	if cfg.LocalConf.WebPort < 0 || cfg.LocalConf.WebPort > 65535 {
		return fmt.Errorf("invalid web_port %d", cfg.LocalConf.WebPort)
	}
	switch cfg.ProbeConf.Framing {
	case types.FramingLine, types.FramingChunk:
	default:
		return fmt.Errorf("invalid framing %q, expected %q or %q", cfg.ProbeConf.Framing, types.FramingLine, types.FramingChunk)
	}
	if cfg.ProbeConf.MaxLineBytes <= 0 {
		return fmt.Errorf("max_line_bytes must be positive, got %d", cfg.ProbeConf.MaxLineBytes)
	}
	if cfg.ProbeConf.ReadBuffer <= 0 {
		return fmt.Errorf("read_buffer must be positive, got %d", cfg.ProbeConf.ReadBuffer)
	}
	return nil
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
