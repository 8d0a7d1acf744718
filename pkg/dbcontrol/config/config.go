package config

import (
	"strings"

	"dbcontrol/pkg/dbcontrol/util/exception"
)

// 接続設定を読み取る環境変数名
const (
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBName     = "DB_NAME"
	EnvSSLCAPath  = "SSL_CA_PATH"
)

// DefaultEnvFileName はプロジェクトルート直下で探す環境変数ファイルの名前です。
const DefaultEnvFileName = ".env"

// EmbeddedConfig は、設定ファイルの内容を保持するためのフィールドです。
// main.go から渡される埋め込み設定を格納します。
type EmbeddedConfig []byte

// ConnectionSettings はデータベース接続情報です。
// Port 以外はすべて必須ですが、ロード時には検証しません。欠落していれば接続時に失敗します。
type ConnectionSettings struct {
	User     string
	Password string
	Host     string
	Port     string // 未設定または "None" の場合は URL から省略されます
	Name     string
}

// SettingsFromEnvironment は環境から ConnectionSettings を組み立てます。
func SettingsFromEnvironment(env Environment) ConnectionSettings {
	return ConnectionSettings{
		User:     env.Get(EnvDBUser),
		Password: env.Get(EnvDBPassword),
		Host:     env.Get(EnvDBHost),
		Port:     env.Get(EnvDBPort),
		Name:     env.Get(EnvDBName),
	}
}

// Validate は必須項目がすべて設定されているかを検証します。
// DatabaseConfig.StrictValidation が有効な場合にのみ呼び出されます。
func (s ConnectionSettings) Validate() error {
	var missing []string
	if s.User == "" {
		missing = append(missing, EnvDBUser)
	}
	if s.Password == "" {
		missing = append(missing, EnvDBPassword)
	}
	if s.Host == "" {
		missing = append(missing, EnvDBHost)
	}
	if s.Name == "" {
		missing = append(missing, EnvDBName)
	}
	if len(missing) == 0 {
		return nil
	}
	return &exception.ConfigurationError{
		Kind:    exception.KindMissingValue,
		Message: "必須の環境変数が設定されていません: " + strings.Join(missing, ", "),
		Hint:    "set them in the environment or in " + DefaultEnvFileName + ".",
	}
}

// DatabaseConfig はデータベース接続周りのアプリケーション設定です。
// プール設定は固定値のためここには含みません。
type DatabaseConfig struct {
	EnvFile          string `yaml:"env_file"`
	StrictValidation bool   `yaml:"strict_validation"`
	PingOnStartup    bool   `yaml:"ping_on_startup"`
	PingTimeoutSec   int    `yaml:"ping_timeout_seconds"`
}

// LoggingConfig はログ出力の設定です。
type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

type Config struct {
	Database       DatabaseConfig `yaml:"database"`
	System         SystemConfig   `yaml:"system"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"` // YAMLからは読み込まない
}

// NewConfig は Config の新しいインスタンスを返します。
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			EnvFile:          DefaultEnvFileName,
			StrictValidation: false,
			PingOnStartup:    false,
			PingTimeoutSec:   10,
		},
		System: SystemConfig{
			Logging: LoggingConfig{Level: "INFO"},
		},
	}
}
