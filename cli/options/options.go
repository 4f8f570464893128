/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ssoonwee/bonafide/cli/input"
	"github.com/ssoonwee/bonafide/pkg/config"
	"github.com/ssoonwee/bonafide/pkg/config/netmode"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/metadata"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/marketplace"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/session"
	"github.com/ssoonwee/bonafide/pkg/storage"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultTimeout is the default timeout used for RPC requests.
	DefaultTimeout = 10 * time.Second
	// DefaultAwaitableTimeout is the default timeout used for commands
	// sending transactions and awaiting their confirmation.
	DefaultAwaitableTimeout = 2 * time.Minute
)

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// Wallet is a flag used to get the signing key.
var Wallet = cli.StringFlag{
	Name:  "wallet, w",
	Usage: "keystore file to get the key for transaction signing from (overrides UnlockWallet configuration)",
}

// Network is a set of flags for choosing the network to operate on
// (privnet/mainnet/testnet).
var Network = []cli.Flag{
	cli.BoolFlag{Name: "privnet, p", Usage: "use private network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "mainnet, m", Usage: "use mainnet network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "testnet, t", Usage: "use testnet network configuration (if --config-file option is not specified)"},
}

// RPC is a set of flags used for RPC connections (endpoint and timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "RPC node address (overrides configuration)",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Usage: "Timeout for the operation",
	},
}

// Config is a flag for commands that use configuration.
var Config = cli.StringFlag{
	Name:  "config-path",
	Usage: "path to directory with per-network configuration files (may be overridden by --config-file option for the configuration file)",
}

// ConfigFile is a flag for commands that use configuration and provide
// path to the specific config file instead of config path.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the configuration file (overrides --config-path option)",
}

// Debug is a flag for commands that allow debug mode usage.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

// Common returns the full set of flags needed to open the marketplace stack.
func Common() []cli.Flag {
	flags := []cli.Flag{Config, ConfigFile, Debug, Wallet}
	flags = append(flags, Network...)
	return append(flags, RPC...)
}

var errNoEndpoint = errors.New("no RPC endpoint specified, use option '--" + RPCEndpointFlag + "' or '-r' or set Chain.Endpoint in the configuration")

// Dial opens the connection to the node, it's a variable to be replaced in
// tests.
var Dial = func(ctx context.Context, o session.Options, log *zap.Logger) (gateway.RPCActor, func(), error) {
	s, err := session.Open(ctx, o, log)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// GetNetwork examines Context's flags and returns the appropriate network. It
// defaults to PrivNet if no flags are given.
func GetNetwork(ctx *cli.Context) netmode.ChainID {
	var net = netmode.PrivNet
	if ctx.Bool("testnet") {
		net = netmode.TestNet
	}
	if ctx.Bool("mainnet") {
		net = netmode.MainNet
	}
	return net
}

// GetTimeoutContext returns a context.Context with the default or a user-set
// timeout. Awaitable commands get a longer default.
func GetTimeoutContext(ctx *cli.Context, await bool) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
		if await {
			dur = DefaultAwaitableTimeout
		}
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfigFromContext looks at the path and the mode flags in the given config and
// returns an appropriate config.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	var configFile = ctx.String("config-file")
	if len(configFile) != 0 {
		return config.LoadFile(configFile)
	}
	var configPath = config.DefaultConfigPath
	if argCp := ctx.String("config-path"); argCp != "" {
		configPath = argCp
	}
	return config.Load(configPath, GetNetwork(ctx))
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function writes into a file rotated
// according to the configuration and returns the closer for it.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, func() error, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		w := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
		}
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(cc.EncoderConfig), zapcore.AddSync(w), cc.Level)
		return zap.New(core), &cc.Level, w.Close, nil
	}

	log, err := cc.Build()
	return log, &cc.Level, nil, err
}

// GetKey returns the signing key from the keystore given by the --wallet
// flag or configured in UnlockWallet. Nil key is returned if neither is
// set. The password is requested from the user unless configured.
func GetKey(ctx *cli.Context, cfg config.Wallet) (*ecdsa.PrivateKey, error) {
	var (
		path = cfg.Path
		pass = cfg.Password
	)
	if p := ctx.String("wallet"); p != "" && p != path {
		path, pass = p, ""
	}
	if path == "" {
		return nil, nil
	}
	if pass == "" {
		var err error
		pass, err = input.ReadPassword(fmt.Sprintf("Enter password for %s > ", path))
		if err != nil {
			return nil, fmt.Errorf("error reading password: %w", err)
		}
	}
	return session.ReadKeystoreFile(path, pass)
}

// Stack is the complete client stack opened for a command.
type Stack struct {
	Config     config.Config
	Log        *zap.Logger
	Level      *zap.AtomicLevel
	Controller *lifecycle.Controller
	Journal    *gateway.Journal

	closers []func()
}

// Close releases everything opened by NewStack, in reverse order.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// NewStack loads the configuration, sets up logging, the store, metadata
// fetcher and connects to the node. If signer is true the key is required.
func NewStack(gctx context.Context, ctx *cli.Context, signer bool) (*Stack, error) {
	cfg, err := GetConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if ep := ctx.String(RPCEndpointFlag); ep != "" {
		cfg.Chain.Endpoint = ep
	}
	if cfg.Chain.Endpoint == "" {
		return nil, errNoEndpoint
	}
	log, level, logCloser, err := HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return nil, err
	}
	s := &Stack{Config: cfg, Log: log, Level: level}
	s.closers = append(s.closers, func() {
		_ = log.Sync()
		if logCloser != nil {
			_ = logCloser()
		}
	})

	key, err := GetKey(ctx, cfg.ApplicationConfiguration.UnlockWallet)
	if err == nil && key == nil && signer {
		err = errors.New("no signing key, use '--wallet' flag or UnlockWallet configuration")
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	s.closers = append(s.closers, func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close storage", zap.Error(err))
		}
	})

	act, closer, err := Dial(gctx, session.Options{
		Endpoint:    cfg.Chain.Endpoint,
		ChainID:     cfg.Chain.ChainIDBig(),
		Contract:    cfg.Chain.ContractAddress(),
		ABI:         marketplace.ParsedABI(),
		Key:         key,
		GasLimit:    cfg.Chain.GasLimit,
		DialTimeout: cfg.Chain.DialTimeout,
	}, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closer)
	if key != nil {
		log.Debug("signing key loaded", zap.Stringer("address", crypto.PubkeyToAddress(key.PublicKey)))
	}

	s.Journal = gateway.NewJournal(store)
	g := gateway.New(act, gateway.Config{Waiter: cfg.Chain.Waiter.WaiterConfig()}, s.Journal, log)
	fetcher := metadata.NewFetcher(cfg.ApplicationConfiguration.Metadata, store, log)
	s.Controller = lifecycle.New(marketplace.New(g), market.NewNormalizer(fetcher, cfg.Chain.Decimals, 0), log)
	return s, nil
}
