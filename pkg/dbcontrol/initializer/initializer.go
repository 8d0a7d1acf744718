package initializer

import (
	"context"
	"time"

	"dbcontrol/pkg/dbcontrol/config"
	"dbcontrol/pkg/dbcontrol/database"
	"dbcontrol/pkg/dbcontrol/util/exception"
	"dbcontrol/pkg/dbcontrol/util/logger"
)

// Options は初期化に必要な外部入力です。
type Options struct {
	BaseDir        string // プロジェクトルート。空の場合は実行ファイルの位置から求める
	EmbeddedConfig []byte // application.yaml の内容
}

// DBInitializer はエンジン生成までの初期化処理を担当します。
type DBInitializer struct {
	Options     Options
	Config      *config.Config
	ProjectRoot string
	Environment config.Environment
	Settings    config.ConnectionSettings
	CertPath    string
	Engine      *database.Engine
}

// NewDBInitializer は新しい DBInitializer のインスタンスを作成します。
func NewDBInitializer(opts Options) *DBInitializer {
	return &DBInitializer{Options: opts}
}

// Initialize は以下の順に一度だけ実行し、エンジンを返します。
// 設定のロード → ルートの解決 → 環境変数のロード → 証明書パスの解決と存在確認 → URL の組み立て → エンジンの生成
// 証明書が見つからない場合は ConfigurationError を返し、エンジンは生成しません。
func (di *DBInitializer) Initialize(ctx context.Context) (*database.Engine, error) {
	logger.Debugf("DBInitializer.Initialize が呼び出されました。")

	// Step 1: 設定のロード (この時点ではプロセスの環境変数のみで上書き)
	cfg, err := config.NewBytesConfigLoader(di.Options.EmbeddedConfig).Load(config.ProcessEnvironment())
	if err != nil {
		return nil, err
	}
	di.Config = cfg

	// Step 2: プロジェクトルートと環境変数ファイル
	di.ProjectRoot = config.ResolveProjectRoot(di.Options.BaseDir)
	logger.Debugf("プロジェクトルート: %s", di.ProjectRoot)

	env, err := config.LoadEnvironment(di.ProjectRoot, cfg.Database.EnvFile)
	if err != nil {
		return nil, err
	}
	di.Environment = env
	// .env に書かれた上書き値も反映する
	config.ApplyEnvironment(cfg, env)

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Infof("ロギングレベルを '%s' に設定しました。", cfg.System.Logging.Level)
	logger.Debugf("設定: %s", cfg)

	// Step 3: 接続設定
	di.Settings = config.SettingsFromEnvironment(env)
	if cfg.Database.StrictValidation {
		if err := di.Settings.Validate(); err != nil {
			return nil, err
		}
	}

	// Step 4: 証明書パスの解決と存在確認
	certPath, err := config.ResolveCertPath(env, di.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateCertPath(certPath, di.ProjectRoot); err != nil {
		return nil, err
	}
	di.CertPath = certPath

	// Step 5: エンジンの生成
	engine, err := database.NewEngine(database.BuildURL(di.Settings), certPath)
	if err != nil {
		return nil, err
	}
	di.Engine = engine

	// Step 6: 任意の疎通確認
	if cfg.Database.PingOnStartup {
		pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.PingTimeoutSec)*time.Second)
		defer cancel()
		if err := engine.Ping(pingCtx); err != nil {
			_ = engine.Close()
			di.Engine = nil
			return nil, exception.NewDatabaseError("initializer", "起動時の疎通確認に失敗しました", err, exception.IsTemporary(err))
		}
		logger.Infof("データベースへの接続を確認しました。")
	}

	return engine, nil
}

// Close は DBInitializer が保持するリソースを解放します。
func (di *DBInitializer) Close() error {
	if di.Engine == nil {
		return nil
	}
	if err := di.Engine.Close(); err != nil {
		return exception.NewDatabaseError("initializer", "エンジンのクローズに失敗しました", err, false)
	}
	logger.Infof("エンジンを正常にクローズしました。")
	return nil
}
