package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	"dbcontrol/example/healthcheck/app"
	"dbcontrol/pkg/dbcontrol/util/logger"
)

//go:embed resources/application.yaml
var embeddedConfig []byte // application.yaml の内容をバイトスライスとして埋め込む

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// シグナルハンドリング (Ctrl+C などで安全に終了するため)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("シグナル '%v' を受信しました。処理を中断します...", sig)
		cancel()
	}()

	// 空の場合は実行ファイルの一つ上のディレクトリをルートとして扱う
	baseDir := os.Getenv("PROJECT_ROOT")

	exitCode := app.RunApplication(ctx, baseDir, embeddedConfig)
	_ = logger.Sync()
	os.Exit(exitCode)
}
