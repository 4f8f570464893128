package options

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ssoonwee/bonafide/cli/input"
	"github.com/ssoonwee/bonafide/pkg/config"
	"github.com/ssoonwee/bonafide/pkg/config/netmode"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// newContext runs an app with the common flags to get the context the
// command action would receive, short flag aliases included.
func newContext(t *testing.T, args ...string) *cli.Context {
	var res *cli.Context
	app := cli.NewApp()
	app.Flags = Common()
	app.Writer = io.Discard
	app.Action = func(ctx *cli.Context) error {
		res = ctx
		return nil
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	require.NotNil(t, res)
	return res
}

func TestGetNetwork(t *testing.T) {
	require.Equal(t, netmode.PrivNet, GetNetwork(newContext(t)))
	require.Equal(t, netmode.PrivNet, GetNetwork(newContext(t, "-p")))
	require.Equal(t, netmode.TestNet, GetNetwork(newContext(t, "-t")))
	require.Equal(t, netmode.MainNet, GetNetwork(newContext(t, "--mainnet")))
}

func TestGetTimeoutContext(t *testing.T) {
	check := func(ctx *cli.Context, await bool, expected time.Duration) {
		gctx, cancel := GetTimeoutContext(ctx, await)
		defer cancel()
		dl, ok := gctx.Deadline()
		require.True(t, ok)
		require.WithinDuration(t, time.Now().Add(expected), dl, time.Second)
	}
	check(newContext(t), false, DefaultTimeout)
	check(newContext(t), true, DefaultAwaitableTimeout)
	check(newContext(t, "-s", "3s"), true, 3*time.Second)
}

func TestGetConfigFromContext(t *testing.T) {
	cfg, err := GetConfigFromContext(newContext(t, "--config-path", "../../config", "-t"))
	require.NoError(t, err)
	require.Equal(t, uint64(netmode.TestNet), cfg.Chain.ChainID)

	cfg, err = GetConfigFromContext(newContext(t, "--config-path", "../../config", "--config-file", "../../config/bonafide.mainnet.yml"))
	require.NoError(t, err)
	require.Equal(t, uint64(netmode.MainNet), cfg.Chain.ChainID)

	_, err = GetConfigFromContext(newContext(t, "--config-path", t.TempDir()))
	require.Error(t, err)
}

func TestHandleLoggingParams(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		_, _, _, err := HandleLoggingParams(false, config.ApplicationConfiguration{LogLevel: "loud"})
		require.Error(t, err)
	})
	t.Run("default", func(t *testing.T) {
		log, level, closer, err := HandleLoggingParams(false, config.ApplicationConfiguration{})
		require.NoError(t, err)
		require.NotNil(t, log)
		require.Nil(t, closer)
		require.Equal(t, zapcore.InfoLevel, level.Level())
	})
	t.Run("debug overrides", func(t *testing.T) {
		_, level, _, err := HandleLoggingParams(true, config.ApplicationConfiguration{LogLevel: "warn"})
		require.NoError(t, err)
		require.Equal(t, zapcore.DebugLevel, level.Level())
	})
	t.Run("file", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "logs", "bonafide.log")
		log, level, closer, err := HandleLoggingParams(false, config.ApplicationConfiguration{
			LogLevel:   "warn",
			LogPath:    logPath,
			LogMaxSize: 1,
		})
		require.NoError(t, err)
		require.NotNil(t, closer)
		log.Info("skipped")
		log.Warn("written")
		level.SetLevel(zapcore.InfoLevel)
		log.Info("written too")
		require.NoError(t, log.Sync())
		require.NoError(t, closer())

		data, err := os.ReadFile(logPath)
		require.NoError(t, err)
		require.NotContains(t, string(data), "skipped")
		require.Contains(t, string(data), "WARN\twritten")
		require.Contains(t, string(data), "INFO\twritten too")
	})
}

func TestGetKey(t *testing.T) {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	acc, err := ks.ImportECDSA(priv, "pass")
	require.NoError(t, err)
	path := acc.URL.Path

	t.Run("none", func(t *testing.T) {
		k, err := GetKey(newContext(t), config.Wallet{})
		require.NoError(t, err)
		require.Nil(t, k)
	})
	t.Run("configured", func(t *testing.T) {
		k, err := GetKey(newContext(t), config.Wallet{Path: path, Password: "pass"})
		require.NoError(t, err)
		require.Equal(t, acc.Address, crypto.PubkeyToAddress(k.PublicKey))
	})
	t.Run("flag with prompt", func(t *testing.T) {
		input.Terminal = term.NewTerminal(input.ReadWriter{
			Reader: bytes.NewBufferString("pass\r"),
			Writer: new(bytes.Buffer),
		}, "")
		t.Cleanup(func() { input.Terminal = nil })

		// Configured password is for the configured wallet only.
		k, err := GetKey(newContext(t, "-w", path), config.Wallet{Path: "other.json", Password: "wrong"})
		require.NoError(t, err)
		require.Equal(t, acc.Address, crypto.PubkeyToAddress(k.PublicKey))
	})
	t.Run("wrong password", func(t *testing.T) {
		_, err := GetKey(newContext(t), config.Wallet{Path: path, Password: "wrong"})
		require.Error(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := GetKey(newContext(t), config.Wallet{Path: filepath.Join(dir, "none.json"), Password: "pass"})
		require.Error(t, err)
	})
}

func TestNewStackNoEndpoint(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bonafide.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
Chain:
  Contract: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
`), 0o644))
	_, err := NewStack(context.Background(), newContext(t, "--config-file", cfgPath), false)
	require.ErrorIs(t, err, errNoEndpoint)
}
