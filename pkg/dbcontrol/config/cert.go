package config

import (
	"os"
	"path/filepath"

	"dbcontrol/pkg/dbcontrol/util/exception"
)

// DefaultCAFileName はオーバーライドがない場合にプロジェクトルート直下で使う CA 証明書です。
const DefaultCAFileName = "DigiCertGlobalRootG2.crt.pem"

// ResolveCertPath は CA 証明書のパスを解決します。
//  1. SSL_CA_PATH が設定されていれば、それを展開した絶対パス
//  2. なければ <root>/DigiCertGlobalRootG2.crt.pem
//
// ファイルの存在は確認しません。ValidateCertPath を使ってください。
func ResolveCertPath(env Environment, root string) (string, error) {
	if override := env.Get(EnvSSLCAPath); override != "" {
		abs, err := filepath.Abs(expandHome(override))
		if err != nil {
			ce := exception.NewConfigurationError(exception.KindInvalidConfig, "SSL_CA_PATH を絶対パスに変換できません", err)
			ce.Path = override
			ce.ProjectRoot = root
			return "", ce
		}
		return abs, nil
	}
	return filepath.Join(root, DefaultCAFileName), nil
}

// ValidateCertPath は CA 証明書ファイルが存在するかを確認します。
// 存在しない場合は KindFileNotFound の ConfigurationError を返します。
func ValidateCertPath(path, root string) error {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return nil
	}
	return &exception.ConfigurationError{
		Kind:        exception.KindFileNotFound,
		Message:     "SSL CA pem not found.",
		Path:        path,
		ProjectRoot: root,
		Hint:        "set env " + EnvSSLCAPath + " to override.",
		OriginalErr: err,
	}
}
