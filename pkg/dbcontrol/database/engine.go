package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"dbcontrol/pkg/dbcontrol/util/exception"
	"dbcontrol/pkg/dbcontrol/util/logger"
)

// DriverName は sqlx に渡すドライバ名です。
const DriverName = "mysql"

// MissingHostAddr はホストが未設定のときにドライバへ渡すアドレスです。
const MissingHostAddr = "None"

// ErrMissingHost はホスト未設定のエンジンで接続しようとしたときに返されます。
var ErrMissingHost = errors.New("接続先ホストが設定されていません")

// PoolOptions はコネクションプールの設定です。値は固定で、入力によって変わることはありません。
type PoolOptions struct {
	PrePing      bool          // 払い出し前に接続の生存を確認する
	Recycle      time.Duration // 接続の最大寿命
	MaxOpenConns int
	MaxIdleConns int
	Echo         bool // 実行する SQL をログに出力する
}

// FixedPoolOptions はエンジンが使うプール設定を返します。
// MaxIdleConns/MaxOpenConns は pool_size=5, max_overflow=10 相当です。
func FixedPoolOptions() PoolOptions {
	return PoolOptions{
		PrePing:      true,
		Recycle:      3600 * time.Second,
		MaxOpenConns: 15,
		MaxIdleConns: 5,
		Echo:         true,
	}
}

// Engine はプロセス全体で共有するプール付きのデータベースハンドルです。
// 生成時には接続を開かないため、認証情報やホストの誤りは最初の利用時に表面化します。
// 複数のゴルーチンから同時に利用できます。
type Engine struct {
	url       string
	parts     URLParts
	pool      PoolOptions
	tls       TLSOptions
	tlsName   string
	driverCfg *mysql.Config
	db        *sqlx.DB
	closeOnce sync.Once
	closeErr  error
}

// NewEngine は接続 URL と CA 証明書のパスからエンジンを生成します。
func NewEngine(rawURL, certPath string) (*Engine, error) {
	parts, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(parts.Scheme, "mysql") {
		return nil, exception.NewConfigurationError(exception.KindInvalidURL,
			fmt.Sprintf("未対応のスキームです: %s", parts.Scheme), nil)
	}

	tlsOpts := TLSOptions{CAFile: certPath, VerifyHostname: false}
	tlsCfg, err := NewTLSConfig(tlsOpts)
	if err != nil {
		return nil, err
	}
	tlsName, err := registerTLSConfig(tlsCfg)
	if err != nil {
		return nil, err
	}

	pool := FixedPoolOptions()
	driverCfg := newDriverConfig(parts, tlsName, pool)

	connector, err := mysql.NewConnector(driverCfg)
	if err != nil {
		mysql.DeregisterTLSConfig(tlsName)
		return nil, exception.NewConfigurationError(exception.KindInvalidURL, "ドライバ設定の作成に失敗しました", err)
	}

	sqlDB := sql.OpenDB(connector)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.Recycle)

	e := &Engine{
		url:       rawURL,
		parts:     parts,
		pool:      pool,
		tls:       tlsOpts,
		tlsName:   tlsName,
		driverCfg: driverCfg,
		db:        sqlx.NewDb(sqlDB, DriverName),
	}
	logger.Infof("エンジンを作成しました: %s (pre_ping=%t, recycle=%s, ca=%s, check_hostname=%t)",
		e, pool.PrePing, pool.Recycle, certPath, tlsOpts.VerifyHostname)
	return e, nil
}

func newDriverConfig(parts URLParts, tlsName string, pool PoolOptions) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = parts.User
	cfg.Passwd = parts.Password
	cfg.Net = "tcp"
	cfg.Addr = parts.Addr() // ポートがなければドライバが 3306 を補う
	cfg.DBName = parts.Database
	cfg.TLSConfig = tlsName
	cfg.CheckConnLiveness = pool.PrePing
	cfg.Logger = logger.DriverLogger{}
	if parts.Host == "" {
		// 空のままだとドライバが 127.0.0.1:3306 を補ってしまう
		cfg.Addr = MissingHostAddr
		cfg.DialFunc = refuseDial
	}
	return cfg
}

func refuseDial(_ context.Context, network, addr string) (net.Conn, error) {
	return nil, &net.OpError{Op: "dial", Net: network, Err: fmt.Errorf("%w (addr=%s)", ErrMissingHost, addr)}
}

// URL は生成に使った接続 URL を返します。パスワードを含みます。
func (e *Engine) URL() string { return e.url }

// String はパスワードを伏せた接続 URL を返します。
func (e *Engine) String() string { return MaskURL(e.url) }

// CertPath は信頼アンカーとして使っている CA 証明書のパスを返します。
func (e *Engine) CertPath() string { return e.tls.CAFile }

func (e *Engine) PoolOptions() PoolOptions { return e.pool }

func (e *Engine) TLSOptions() TLSOptions { return e.tls }

// TLSConfigName はドライバに登録した TLS 設定の名前を返します。
func (e *Engine) TLSConfigName() string { return e.tlsName }

// DriverConfig はドライバ設定のコピーを返します。
func (e *Engine) DriverConfig() *mysql.Config { return e.driverCfg.Clone() }

// DB は基盤となる *sql.DB を返します。SQL のログ出力は行われません。
func (e *Engine) DB() *sql.DB { return e.db.DB }

// X は基盤となる *sqlx.DB を返します。
func (e *Engine) X() *sqlx.DB { return e.db }

// Ping は実際に接続を開いて疎通を確認します。
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return exception.NewDatabaseErrorf("engine", "データベースへの Ping に失敗しました (%s)", e, err)
	}
	logger.Debugf("データベースへの Ping に成功しました: %s", e)
	return nil
}

// Close はプールを閉じ、登録した TLS 設定を解除します。複数回呼び出しても安全です。
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.db.Close()
		mysql.DeregisterTLSConfig(e.tlsName)
		if e.closeErr != nil {
			logger.Errorf("エンジンのクローズに失敗しました: %v", e.closeErr)
			return
		}
		logger.Debugf("エンジンをクローズしました: %s", e)
	})
	return e.closeErr
}
