package flags

import (
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/signet-registry/api"
	"github.com/ruteri/signet-registry/common"
	"github.com/ruteri/signet-registry/registry"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxBodyBytes:             cCtx.Int64(MaxBodyBytesFlag.Name),
	}
}

// ParsePrivateKey parses a hex-encoded secp256k1 private key, with or without 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

var RpcAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Value: "http://127.0.0.1:8545",
	Usage: "address to connect to RPC",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:  "server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "relay server address to request",
}

var RegistryFlag = &cli.StringFlag{
	Name:  "registry",
	Value: registry.SignetRegistryName,
	Usage: fmt.Sprintf("registry to operate on: '%s' or '%s'", registry.SignetRegistryName, registry.ProxyWalletRegistryName),
}

var PrivkeyFlag = &cli.StringFlag{
	Name:    "privkey",
	EnvVars: []string{"REGISTRY_PRIVKEY"},
	Usage:   "hex-encoded secp256k1 private key of the owner",
}

var ContractFlag = &cli.StringFlag{
	Name:  "contract",
	Usage: "address of the deployed registry contract. If set, operations go to the chain instead of the relay",
}

var ChainIDFlag = &cli.Int64Flag{
	Name:  "chain-id",
	Value: registry.DefaultChainID,
	Usage: "chain id bound into Signet Registry signatures",
}

var SignetStoreFlag = &cli.StringSliceFlag{
	Name:  "signet-store",
	Value: cli.NewStringSlice("memory://"),
	Usage: "storage location of the Signet Registry state, repeat to replicate (memory://, file://, s3://, vault://)",
}

var ProxyWalletStoreFlag = &cli.StringSliceFlag{
	Name:  "proxy-wallet-store",
	Value: cli.NewStringSlice("memory://"),
	Usage: "storage location of the RTSProxyWallet state, repeat to replicate (memory://, file://, s3://, vault://)",
}

var MaxBodyBytesFlag = &cli.Int64Flag{
	Name:  "max-body-bytes",
	Value: api.DefaultMaxBodyBytes,
	Usage: "maximum accepted request body size",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
