package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel はログのレベルを表す型です。
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu          sync.RWMutex
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar       = newSugar(atomicLevel)
)

func newSugar(level zap.AtomicLevel) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.Sampling = nil

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// 設定が固定なので通常は到達しない
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLogLevel はログレベルを設定します。
// 不明な値が指定された場合は INFO レベルで続行します。
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		atomicLevel.SetLevel(zapcore.DebugLevel)
	case "INFO":
		atomicLevel.SetLevel(zapcore.InfoLevel)
	case "WARN":
		atomicLevel.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		atomicLevel.SetLevel(zapcore.ErrorLevel)
	case "FATAL":
		atomicLevel.SetLevel(zapcore.FatalLevel)
	default:
		Warnf("不明なログレベル '%s' が指定されました。INFO レベルで続行します。", level)
		atomicLevel.SetLevel(zapcore.InfoLevel)
	}
}

// GetLogLevel は現在のログレベルを返します。
func GetLogLevel() LogLevel {
	switch atomicLevel.Level() {
	case zapcore.DebugLevel:
		return LevelDebug
	case zapcore.InfoLevel:
		return LevelInfo
	case zapcore.WarnLevel:
		return LevelWarn
	case zapcore.ErrorLevel:
		return LevelError
	default:
		return LevelFatal
	}
}

// SetLogger は出力先の zap ロガーを差し替えます。テストで observer を使う場合などに利用します。
// 差し替え後もレベルは SetLogLevel で制御されます。
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		sugar = newSugar(atomicLevel)
		return
	}
	sugar = l.WithOptions(zap.AddCallerSkip(1), zap.IncreaseLevel(atomicLevel)).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debugf は DEBUG レベルのログを出力します。
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof は INFO レベルのログを出力します。
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf は WARN レベルのログを出力します。
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf は ERROR レベルのログを出力します。
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf は FATAL レベルのログを出力し、プログラムを終了します。
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}

// Sync はバッファされたログを書き出します。
func Sync() error {
	return current().Sync()
}

// DriverLogger は go-sql-driver/mysql の内部ログを WARN レベルで出力するアダプターです。
// mysql.SetLogger に渡して使用します。
type DriverLogger struct{}

// Print は mysql.Logger インターフェースの実装です。
func (DriverLogger) Print(v ...any) {
	current().Warnf("[mysql] %s", strings.TrimSpace(fmt.Sprint(v...)))
}
