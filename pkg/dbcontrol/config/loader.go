package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"dbcontrol/pkg/dbcontrol/util/exception"
	"dbcontrol/pkg/dbcontrol/util/logger"
)

// 設定ファイルの値を上書きする環境変数名
const (
	EnvLoggingLevel       = "SYSTEM_LOGGING_LEVEL"
	EnvStrictValidation   = "DATABASE_STRICT_VALIDATION"
	EnvPingOnStartup      = "DATABASE_PING_ON_STARTUP"
	EnvPingTimeoutSeconds = "DATABASE_PING_TIMEOUT_SECONDS"
	EnvEnvFileName        = "ENV_FILE_NAME"
)

// BytesConfigLoader はバイトスライスから設定をロードします。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader のインスタンスを作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load は埋め込まれたバイトスライスから設定をロードし、env の値で上書きします。
// データが空の場合はデフォルト設定を返します。
func (l *BytesConfigLoader) Load(env Environment) (*Config, error) {
	cfg := NewConfig()

	if len(l.data) > 0 {
		if err := yaml.Unmarshal(l.data, cfg); err != nil {
			return nil, exception.NewConfigurationError(exception.KindInvalidConfig, "YAML設定のパースに失敗しました", err)
		}
	}
	cfg.EmbeddedConfig = l.data

	ApplyEnvironment(cfg, env)
	return cfg, nil
}

// ApplyEnvironment は環境変数で個別の設定値を上書きします。
// 解釈できない値は警告を出して無視します。
func ApplyEnvironment(cfg *Config, env Environment) {
	if level, ok := env.Lookup(EnvLoggingLevel); ok && level != "" {
		cfg.System.Logging.Level = level
	}
	if name, ok := env.Lookup(EnvEnvFileName); ok && name != "" {
		cfg.Database.EnvFile = name
	}
	if v, ok := env.Lookup(EnvStrictValidation); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.StrictValidation = b
		} else {
			logger.Warnf("%s の値 '%s' が無効です。設定ファイルの値を使用します。", EnvStrictValidation, v)
		}
	}
	if v, ok := env.Lookup(EnvPingOnStartup); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.PingOnStartup = b
		} else {
			logger.Warnf("%s の値 '%s' が無効です。設定ファイルの値を使用します。", EnvPingOnStartup, v)
		}
	}
	if v, ok := env.Lookup(EnvPingTimeoutSeconds); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Database.PingTimeoutSec = n
		} else {
			logger.Warnf("%s の値 '%s' が無効です。設定ファイルの値を使用します。", EnvPingTimeoutSeconds, v)
		}
	}
}

// String は設定内容をログ出力用に整形します。
func (c *Config) String() string {
	return fmt.Sprintf("env_file=%s strict_validation=%t ping_on_startup=%t ping_timeout_seconds=%d logging.level=%s",
		c.Database.EnvFile, c.Database.StrictValidation, c.Database.PingOnStartup, c.Database.PingTimeoutSec, c.System.Logging.Level)
}
