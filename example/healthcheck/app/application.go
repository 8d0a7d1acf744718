package app

import (
	"context"
	"errors"

	"dbcontrol/pkg/dbcontrol/database"
	"dbcontrol/pkg/dbcontrol/initializer"
	"dbcontrol/pkg/dbcontrol/util/exception"
	"dbcontrol/pkg/dbcontrol/util/logger"
)

// RunApplication はエンジンを初期化し、設定に応じてサーバーのバージョンを確認します。
// 終了コードを返します。
func RunApplication(ctx context.Context, baseDir string, embeddedConfig []byte) int {
	dbInitializer := initializer.NewDBInitializer(initializer.Options{
		BaseDir:        baseDir,
		EmbeddedConfig: embeddedConfig,
	})

	engine, err := dbInitializer.Initialize(ctx)
	if err != nil {
		return handleApplicationError(err)
	}
	defer func() {
		if closeErr := dbInitializer.Close(); closeErr != nil {
			logger.Errorf("リソースのクローズ中にエラーが発生しました: %v", closeErr)
		}
	}()
	logger.Infof("エンジンの初期化が完了しました: %s", engine)

	if !dbInitializer.Config.Database.PingOnStartup {
		return 0
	}
	version, err := serverVersion(ctx, engine)
	if err != nil {
		return handleApplicationError(err)
	}
	logger.Infof("MySQL サーバーのバージョン: %s", version)
	return 0
}

// serverVersion は接続先サーバーのバージョン文字列を取得します。
func serverVersion(ctx context.Context, conn database.DBConnection) (string, error) {
	var version string
	if err := conn.GetContext(ctx, &version, "SELECT VERSION()"); err != nil {
		return "", exception.NewDatabaseError("app", "サーバーバージョンの取得に失敗しました", err, exception.IsTemporary(err))
	}
	return version, nil
}

// handleApplicationError はエラーの詳細をログ出力し、終了コードを返します。
func handleApplicationError(err error) int {
	var ce *exception.ConfigurationError
	if errors.As(err, &ce) {
		logger.Errorf("設定エラー (%s): %v", ce.Kind, ce)
		return 2
	}

	var de *exception.DatabaseError
	if errors.As(err, &de) {
		logger.Errorf("DatabaseError 詳細: Module=%s, Message=%s, OriginalErr=%v, Retryable=%t",
			de.Module, de.Message, de.OriginalErr, de.IsRetryable())
		if de.StackTrace != "" {
			logger.Debugf("DatabaseError StackTrace:\n%s", de.StackTrace)
		}
		return 1
	}

	logger.Errorf("予期しないエラーが発生しました: %v", err)
	return 1
}
