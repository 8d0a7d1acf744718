package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"dbcontrol/pkg/dbcontrol/util/logger"
)

// Tx はデータベーストランザクションのインターフェースです。
type Tx interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// DBConnection はデータベース接続のインターフェースです。
// *Engine がこれを実装します。エンジンを利用する側はこのインターフェースに依存してください。
type DBConnection interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	Ping(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

var _ DBConnection = (*Engine)(nil)

// echo は Echo が有効な場合に実行する SQL とパラメータを INFO レベルで出力します。
func echo(enabled bool, query string, args []any) {
	if !enabled {
		return
	}
	if len(args) == 0 {
		logger.Infof("SQL: %s", query)
		return
	}
	logger.Infof("SQL: %s [parameters: %v]", query, args)
}

// BeginTx はトランザクションを開始します。
func (e *Engine) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	echo(e.pool.Echo, "BEGIN (implicit)", nil)
	tx, err := e.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &echoTx{tx: tx, echo: e.pool.Echo}, nil
}

// ExecContext は sqlx.DB の ExecContext を呼び出します。
func (e *Engine) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	echo(e.pool.Echo, query, args)
	return e.db.ExecContext(ctx, query, args...)
}

// QueryContext は sqlx.DB の QueryContext を呼び出します。
func (e *Engine) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	echo(e.pool.Echo, query, args)
	return e.db.QueryContext(ctx, query, args...)
}

// QueryRowContext は sqlx.DB の QueryRowContext を呼び出します。
func (e *Engine) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	echo(e.pool.Echo, query, args)
	return e.db.QueryRowContext(ctx, query, args...)
}

// GetContext は 1 行を dest にスキャンします。
func (e *Engine) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	echo(e.pool.Echo, query, args)
	return e.db.GetContext(ctx, dest, query, args...)
}

// SelectContext は全行を dest (スライス) にスキャンします。
func (e *Engine) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	echo(e.pool.Echo, query, args)
	return e.db.SelectContext(ctx, dest, query, args...)
}

// echoTx は sqlx.Tx を Tx インターフェースに適合させるアダプターです。
type echoTx struct {
	tx   *sqlx.Tx
	echo bool
}

func (t *echoTx) Commit() error {
	echo(t.echo, "COMMIT", nil)
	return t.tx.Commit()
}

func (t *echoTx) Rollback() error {
	echo(t.echo, "ROLLBACK", nil)
	return t.tx.Rollback()
}

func (t *echoTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	echo(t.echo, query, args)
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *echoTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	echo(t.echo, query, args)
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *echoTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	echo(t.echo, query, args)
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *echoTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	echo(t.echo, query, args)
	return t.tx.GetContext(ctx, dest, query, args...)
}

func (t *echoTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	echo(t.echo, query, args)
	return t.tx.SelectContext(ctx, dest, query, args...)
}
