package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. PNBRIDGE_LOG_LEVEL.
const EnvPrefix = "PNBRIDGE"

type BridgeConfig struct {
	LogLevel    string     `mapstructure:"log_level"`
	HostScript  string     `mapstructure:"host_script"`
	ModulePaths []string   `mapstructure:"module_paths"`
	Modules     []string   `mapstructure:"modules"`
	Bridge      CallConfig `mapstructure:"bridge"`
	Wasm        WasmConfig `mapstructure:"wasm"`
}

// CallConfig holds call bridge configuration.
type CallConfig struct {
	// How long a native handler waits for the host to answer a call.
	// Zero waits forever.
	HostCallTimeout time.Duration `mapstructure:"host_call_timeout"`
}

// WasmConfig holds Wasm runtime configuration for host scripts.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
}

func LoadBridgeConfig(configPath string) (*BridgeConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("host_script", "")
	v.SetDefault("module_paths", []string{"./modules"})
	v.SetDefault("modules", []string{})

	// Bridge defaults
	v.SetDefault("bridge.host_call_timeout", "0s")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 1)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
