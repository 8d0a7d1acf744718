package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"dbcontrol/pkg/dbcontrol/util/exception"
	"dbcontrol/pkg/dbcontrol/util/logger"
)

// Environment は起動時に一度だけ組み立てられる環境変数のスナップショットです。
// プロセス全体の環境変数を書き換えずに、必要なコンポーネントへ明示的に渡します。
type Environment map[string]string

// Lookup はキーの値と、設定されているかどうかを返します。
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Get はキーの値を返します。未設定の場合は空文字列です。
func (e Environment) Get(key string) string {
	return e[key]
}

// ProcessEnvironment は現在のプロセスの環境変数から Environment を作成します。
func ProcessEnvironment() Environment {
	env := make(Environment)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return env
}

// LoadEnvironment は root 直下の fileName (KEY=VALUE 形式) を読み込み、
// プロセスの環境変数と合成した Environment を返します。
// 同じキーがあればプロセスの環境変数が優先されます。ファイルが存在しない場合はエラーにしません。
func LoadEnvironment(root, fileName string) (Environment, error) {
	if fileName == "" {
		fileName = DefaultEnvFileName
	}
	path := fileName
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, fileName)
	}

	env := make(Environment)
	fileValues, err := godotenv.Read(path)
	switch {
	case err == nil:
		for k, v := range fileValues {
			env[k] = v
		}
		logger.Debugf("環境変数ファイルをロードしました: %s (%d 件)", path, len(fileValues))
	case errors.Is(err, fs.ErrNotExist):
		logger.Debugf("環境変数ファイルが見つからないため、ロードをスキップします: %s", path)
	default:
		ce := exception.NewConfigurationError(exception.KindInvalidConfig, "環境変数ファイルの読み込みに失敗しました", err)
		ce.Path = path
		ce.ProjectRoot = root
		return nil, ce
	}

	for k, v := range ProcessEnvironment() {
		env[k] = v
	}
	return env, nil
}

// ResolveProjectRoot はデフォルトのファイル探索に使うプロジェクトルートを返します。
// baseDir が指定されていればその絶対パスを、なければ実行ファイルのあるディレクトリの
// 一つ上を使います。どちらも解決できない場合は作業ディレクトリです。
func ResolveProjectRoot(baseDir string) string {
	if baseDir != "" {
		if abs, err := filepath.Abs(expandHome(baseDir)); err == nil {
			return abs
		}
	}

	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(filepath.Dir(exe))
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// expandHome は先頭の "~" をホームディレクトリに展開します。
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
