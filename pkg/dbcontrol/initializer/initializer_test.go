package initializer_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbcontrol/internal/testcert"
	"dbcontrol/pkg/dbcontrol/config"
	"dbcontrol/pkg/dbcontrol/initializer"
	"dbcontrol/pkg/dbcontrol/util/exception"
)

// unsetenv はテスト中だけ環境変数を削除します。
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() {
			if ok {
				_ = os.Setenv(key, prev)
			}
		})
	}
}

func cleanEnv(t *testing.T) {
	t.Helper()
	unsetenv(t,
		config.EnvDBUser, config.EnvDBPassword, config.EnvDBHost, config.EnvDBPort, config.EnvDBName,
		config.EnvSSLCAPath, config.EnvLoggingLevel, config.EnvStrictValidation,
		config.EnvPingOnStartup, config.EnvPingTimeoutSeconds, config.EnvEnvFileName,
	)
}

func writeEnvFile(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(content), 0o600))
}

const aliceEnv = "DB_USER=alice\nDB_PASSWORD=p@ss\nDB_HOST=db.example.com\nDB_NAME=app\n"

func TestInitialize_DefaultCertPresent(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	writeEnvFile(t, root, aliceEnv)
	ca := testcert.NewAuthority(t, "DigiCert Global Root G2 (test)")
	caPath := ca.WriteFile(t, root, config.DefaultCAFileName)

	di := initializer.NewDBInitializer(initializer.Options{BaseDir: root})
	engine, err := di.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = di.Close() })

	assert.Equal(t, "mysql+pymysql://alice:p@ss@db.example.com/app", engine.URL())
	assert.Equal(t, caPath, engine.CertPath())
	assert.Equal(t, root, di.ProjectRoot)
	assert.True(t, engine.PoolOptions().PrePing)
	assert.Equal(t, float64(3600), engine.PoolOptions().Recycle.Seconds())
}

func TestInitialize_DefaultCertMissing(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	writeEnvFile(t, root, aliceEnv)

	di := initializer.NewDBInitializer(initializer.Options{BaseDir: root})
	engine, err := di.Initialize(context.Background())

	require.Error(t, err)
	assert.Nil(t, engine)
	assert.Nil(t, di.Engine)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var ce *exception.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, exception.KindFileNotFound, ce.Kind)
	assert.Equal(t, filepath.Join(root, config.DefaultCAFileName), ce.Path)
	assert.Equal(t, root, ce.ProjectRoot)
	assert.Contains(t, ce.Hint, "SSL_CA_PATH")
}

func TestInitialize_OverrideCertPath(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	writeEnvFile(t, root, aliceEnv+"DB_PORT=3306\n")
	// デフォルトの証明書も置いておくが、オーバーライドが使われる
	testcert.NewAuthority(t, "default").WriteFile(t, root, config.DefaultCAFileName)
	override := testcert.NewAuthority(t, "override").WriteFile(t, t.TempDir(), "azure-ca.pem")
	t.Setenv(config.EnvSSLCAPath, override)

	di := initializer.NewDBInitializer(initializer.Options{BaseDir: root})
	engine, err := di.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = di.Close() })

	assert.Equal(t, override, di.CertPath)
	assert.Equal(t, override, engine.CertPath())
	assert.Equal(t, "mysql+pymysql://alice:p@ss@db.example.com:3306/app", engine.URL())
}

func TestInitialize_MissingCredentialsAreDeferred(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	testcert.NewAuthority(t, "ca").WriteFile(t, root, config.DefaultCAFileName)

	di := initializer.NewDBInitializer(initializer.Options{BaseDir: root})
	engine, err := di.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = di.Close() })

	assert.Equal(t, "mysql+pymysql://:@/", engine.URL())
}

func TestInitialize_StrictValidation(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	writeEnvFile(t, root, "DB_USER=alice\n")
	testcert.NewAuthority(t, "ca").WriteFile(t, root, config.DefaultCAFileName)

	di := initializer.NewDBInitializer(initializer.Options{
		BaseDir:        root,
		EmbeddedConfig: []byte("database:\n  strict_validation: true\n"),
	})
	_, err := di.Initialize(context.Background())

	require.Error(t, err)
	assert.True(t, exception.IsConfigurationError(err, exception.KindMissingValue))
	assert.Nil(t, di.Engine)
}

func TestInitialize_PingOnStartupFailure(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	writeEnvFile(t, root, "DB_USER=alice\nDB_PASSWORD=x\nDB_HOST=127.0.0.1\nDB_PORT=1\nDB_NAME=app\nDATABASE_PING_TIMEOUT_SECONDS=2\n")
	testcert.NewAuthority(t, "ca").WriteFile(t, root, config.DefaultCAFileName)

	di := initializer.NewDBInitializer(initializer.Options{
		BaseDir:        root,
		EmbeddedConfig: []byte("database:\n  ping_on_startup: true\n"),
	})
	engine, err := di.Initialize(context.Background())

	require.Error(t, err)
	assert.Nil(t, engine)
	assert.Nil(t, di.Engine)
	assert.Equal(t, 2, di.Config.Database.PingTimeoutSec)

	var dbErr *exception.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "initializer", dbErr.Module)
	assert.NoError(t, di.Close())
}

func TestInitialize_InvalidEmbeddedConfig(t *testing.T) {
	cleanEnv(t)
	di := initializer.NewDBInitializer(initializer.Options{
		BaseDir:        t.TempDir(),
		EmbeddedConfig: []byte("database: [broken"),
	})
	_, err := di.Initialize(context.Background())

	assert.True(t, exception.IsConfigurationError(err, exception.KindInvalidConfig))
}
