package exception_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"

	"dbcontrol/pkg/dbcontrol/util/exception"
)

func TestConfigurationError_FileNotFound(t *testing.T) {
	err := &exception.ConfigurationError{
		Kind:        exception.KindFileNotFound,
		Message:     "SSL CA pem not found.",
		Path:        "/srv/app/DigiCertGlobalRootG2.crt.pem",
		ProjectRoot: "/srv/app",
		Hint:        "set env SSL_CA_PATH to override.",
	}

	assert.Equal(t,
		"SSL CA pem not found.\n"+
			"  tried: /srv/app/DigiCertGlobalRootG2.crt.pem\n"+
			"  PROJECT_ROOT: /srv/app\n"+
			"  set env SSL_CA_PATH to override.",
		err.Error())
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	wrapped := fmt.Errorf("init: %w", err)
	assert.True(t, exception.IsConfigurationError(wrapped, exception.KindFileNotFound))
	assert.False(t, exception.IsConfigurationError(wrapped, exception.KindMissingValue))
}

func TestConfigurationError_OtherKindIsNotNotExist(t *testing.T) {
	cause := errors.New("no PEM data")
	err := exception.NewConfigurationError(exception.KindInvalidCertificate, "bad pem", cause)

	assert.False(t, errors.Is(err, fs.ErrNotExist))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cause: no PEM data")
}

func TestDatabaseError(t *testing.T) {
	cause := errors.New("access denied")
	err := exception.NewDatabaseError("engine", "Ping に失敗しました", cause, false)

	assert.Equal(t, "[engine] Ping に失敗しました: access denied", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.IsRetryable())
	assert.NotEmpty(t, err.StackTrace)
}

func TestNewDatabaseErrorf_ExtractsError(t *testing.T) {
	err := exception.NewDatabaseErrorf("engine", "host %s に接続できません", "db.example.com", driver.ErrBadConn)

	assert.Equal(t, "host db.example.com に接続できません", err.Message)
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.True(t, err.IsRetryable())
}

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: fmt.Errorf("wrap: %w", driver.ErrBadConn), want: true},
		{name: "invalid conn", err: mysql.ErrInvalidConn, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "refused", err: errors.New("dial tcp 10.0.0.1:3306: connect: connection refused"), want: true},
		{name: "auth", err: &mysql.MySQLError{Number: 1045, Message: "Access denied"}, want: false},
		{name: "retryable database error", err: exception.NewDatabaseError("engine", "x", nil, true), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exception.IsTemporary(tt.err))
		})
	}
}
