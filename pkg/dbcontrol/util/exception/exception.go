package exception

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"runtime"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrorKind は ConfigurationError の分類です。
type ErrorKind string

const (
	KindFileNotFound       ErrorKind = "file_not_found"
	KindInvalidCertificate ErrorKind = "invalid_certificate"
	KindMissingValue       ErrorKind = "missing_value"
	KindInvalidURL         ErrorKind = "invalid_url"
	KindInvalidConfig      ErrorKind = "invalid_config"
)

// ConfigurationError は起動時の設定不備を表す致命的なエラーです。
// 発生した場合、エンジンの生成に進んではいけません。
type ConfigurationError struct {
	Kind        ErrorKind
	Message     string
	Path        string // 試行したファイルパス (ファイル関連のエラーのみ)
	ProjectRoot string // 解決済みのプロジェクトルート
	Hint        string // 利用者への対処方法
	OriginalErr error
}

// NewConfigurationError は新しい ConfigurationError のインスタンスを作成します。
func NewConfigurationError(kind ErrorKind, message string, originalErr error) *ConfigurationError {
	return &ConfigurationError{
		Kind:        kind,
		Message:     message,
		OriginalErr: originalErr,
	}
}

// Error は error インターフェースの実装です。
// 試行したパスとルートを複数行で出力します。
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, "\n  tried: %s", e.Path)
	}
	if e.ProjectRoot != "" {
		fmt.Fprintf(&b, "\n  PROJECT_ROOT: %s", e.ProjectRoot)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n  %s", e.Hint)
	}
	if e.OriginalErr != nil {
		fmt.Fprintf(&b, "\n  cause: %v", e.OriginalErr)
	}
	return b.String()
}

// Unwrap は errors.Unwrap のために元のエラーを返します。
func (e *ConfigurationError) Unwrap() error {
	return e.OriginalErr
}

// Is は KindFileNotFound のエラーを fs.ErrNotExist と等価に扱います。
func (e *ConfigurationError) Is(target error) bool {
	return target == fs.ErrNotExist && e.Kind == KindFileNotFound
}

// IsConfigurationError は err の連鎖に指定種別の ConfigurationError が含まれるかを判定します。
func IsConfigurationError(err error, kind ErrorKind) bool {
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}

// DatabaseError はドライバ層で発生したエラーを表します。
// エラーの発生元モジュール、メッセージ、ラップされた元のエラー、
// そしてリトライ可能かどうかのフラグを保持します。
type DatabaseError struct {
	Module      string // エラーが発生したモジュール (例: "engine", "initializer")
	Message     string
	OriginalErr error
	isRetryable bool
	StackTrace  string // スタックトレース (デバッグ用)
}

// NewDatabaseError は新しい DatabaseError のインスタンスを作成します。
func NewDatabaseError(module, message string, originalErr error, isRetryable bool) *DatabaseError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &DatabaseError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  string(buf[:n]),
	}
}

// NewDatabaseErrorf はフォーマット文字列を使用して DatabaseError を作成します。
// 引数に error が含まれる場合、最後のものを OriginalErr として扱い、メッセージからは除外します。
func NewDatabaseErrorf(module, format string, a ...interface{}) *DatabaseError {
	var originalErr error
	args := make([]interface{}, 0, len(a))
	for i := len(a) - 1; i >= 0; i-- {
		if err, ok := a[i].(error); ok && originalErr == nil {
			originalErr = err
			continue
		}
		args = append([]interface{}{a[i]}, args...)
	}
	return NewDatabaseError(module, fmt.Sprintf(format, args...), originalErr, IsTemporary(originalErr))
}

// Error は error インターフェースの実装です。
func (e *DatabaseError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap は errors.Unwrap のために元のエラーを返します。
func (e *DatabaseError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable はこのエラーがリトライ可能かどうかを返します。
func (e *DatabaseError) IsRetryable() bool {
	return e.isRetryable
}

// IsTemporary は一時的なエラーかどうかを判定します。
// 切断済みコネクションやネットワークのタイムアウトなど、時間をおけば回復しうるものが対象です。
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var de *DatabaseError
	if errors.As(err, &de) {
		return de.IsRetryable()
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}
