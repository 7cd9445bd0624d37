// registryd serves the metadata registry over HTTP: the engine with its state
// store, ledger, and oracle binding, the read/submit API, and the lifecycle
// event stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainspec/registry/internal/attest"
	"github.com/chainspec/registry/internal/blobstore"
	"github.com/chainspec/registry/internal/events"
	"github.com/chainspec/registry/internal/httpapi"
	"github.com/chainspec/registry/internal/ledger"
	"github.com/chainspec/registry/internal/oracle"
	"github.com/chainspec/registry/internal/queue"
	"github.com/chainspec/registry/internal/registry"
	"github.com/chainspec/registry/internal/state"
	statepg "github.com/chainspec/registry/internal/state/postgres"
)

func main() {
	var (
		listenAddr = flag.String("listen", "127.0.0.1:8080", "HTTP listen address")

		storeDriver = flag.String("store-driver", "postgres", "state store driver: postgres|memory")
		postgresDSN = flag.String("postgres-dsn", "", "Postgres DSN (required when --store-driver=postgres)")

		adminAddr     = flag.String("admin", "", "root admin address (required)")
		treasuryAddr  = flag.String("treasury", "", "treasury address receiving settlement fees (required)")
		oracleAddr    = flag.String("oracle-account", "", "oracle custody account proposal bonds are forwarded to (required)")
		arbitratorStr = flag.String("arbitrator", "", "arbitrator address passed on every oracle question")

		minBond            = flag.Uint64("min-bond", 0, "minimum bond for auto-proposal (required)")
		feePercent         = flag.Uint64("fee-percent", registry.DefaultFeePercent, "platform fee percent on accepted settlements")
		questionTemplateID = flag.Uint64("question-template-id", 0, "oracle question template id")

		commitRevealTimeout  = flag.Duration("commit-reveal-timeout", registry.DefaultCommitRevealTimeout, "window between commit and reveal")
		incentiveMaxDuration = flag.Duration("incentive-max-duration", registry.DefaultIncentiveMaxDuration, "maximum incentive duration")
		clawbackDelay        = flag.Duration("clawback-delay", registry.DefaultClawbackDelay, "delay after incentive deadline before clawback opens")
		oracleTimeout        = flag.Duration("oracle-timeout", registry.DefaultOracleTimeout, "oracle question timeout")
		oracleOpeningDelay   = flag.Duration("oracle-opening-delay", registry.DefaultOracleOpeningDelay, "oracle question opening delay")

		oracleDriver      = flag.String("oracle-driver", "memory", "oracle driver: memory|contract")
		oracleRPCURL      = flag.String("oracle-rpc-url", "", "EVM RPC URL (required when --oracle-driver=contract)")
		oracleContract    = flag.String("oracle-contract", "", "oracle contract address (required when --oracle-driver=contract)")
		oracleChainID     = flag.Uint64("oracle-chain-id", 0, "EVM chain id for oracle transactions (required when --oracle-driver=contract)")
		oracleKeyHex      = flag.String("oracle-key-hex", "", "signer private key hex for oracle transactions")
		oracleKeyFile     = flag.String("oracle-key-file", "", "signer private key file for oracle transactions")
		oracleKeySecret   = flag.String("oracle-key-secret", "", "AWS Secrets Manager secret id holding the oracle signer key")
		oracleMinTipCap   = flag.Uint64("oracle-min-tip-cap-wei", 1_000_000_000, "minimum EIP-1559 tip cap in wei for oracle transactions")
		oracleReceiptPoll = flag.Duration("oracle-receipt-poll", 2*time.Second, "receipt poll interval for oracle transactions")

		queueDriver  = flag.String("queue-driver", queue.DriverKafka, "queue driver for lifecycle events (kafka|stdio)")
		queueBrokers = flag.String("queue-brokers", "", "queue brokers (comma-separated); empty disables event publishing")
		eventTopic   = flag.String("event-topic", "registry.events.v1", "queue topic for lifecycle events")

		blobDriver  = flag.String("blob-driver", blobstore.DriverMemory, "blob store driver for revealed payloads (s3|memory)")
		blobBucket  = flag.String("blob-bucket", "", "s3 bucket for revealed payloads (required when --blob-driver=s3)")
		blobPrefix  = flag.String("blob-prefix", "blobs", "s3 key prefix for revealed payloads")
		maxBlobSize = flag.Int64("max-blob-size", 16<<20, "maximum revealed payload size in bytes")

		rateLimitPerSecond = flag.Float64("rate-limit-per-ip-per-second", 20, "per-IP refill rate for API rate limiting")
		rateLimitBurst     = flag.Int("rate-limit-burst", 40, "per-IP burst capacity for API rate limiting")
		rateLimitMaxIPs    = flag.Int("rate-limit-max-tracked-ips", 10000, "maximum tracked client IP entries in rate limiter")

		readHeaderTimeout = flag.Duration("read-header-timeout", 5*time.Second, "http.Server ReadHeaderTimeout")
		readTimeout       = flag.Duration("read-timeout", 10*time.Second, "http.Server ReadTimeout")
		writeTimeout      = flag.Duration("write-timeout", 10*time.Second, "http.Server WriteTimeout")
		idleTimeout       = flag.Duration("idle-timeout", 60*time.Second, "http.Server IdleTimeout")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *adminAddr == "" || *treasuryAddr == "" || *oracleAddr == "" || *minBond == 0 {
		fmt.Fprintln(os.Stderr, "error: --admin, --treasury, --oracle-account, and --min-bond are required")
		os.Exit(2)
	}
	for name, v := range map[string]string{
		"--admin":          *adminAddr,
		"--treasury":       *treasuryAddr,
		"--oracle-account": *oracleAddr,
	} {
		if !common.IsHexAddress(v) {
			fmt.Fprintf(os.Stderr, "error: %s must be a valid hex address\n", name)
			os.Exit(2)
		}
	}
	if *arbitratorStr != "" && !common.IsHexAddress(*arbitratorStr) {
		fmt.Fprintln(os.Stderr, "error: --arbitrator must be a valid hex address")
		os.Exit(2)
	}
	if *questionTemplateID > uint64(^uint32(0)) {
		fmt.Fprintln(os.Stderr, "error: --question-template-id must fit uint32")
		os.Exit(2)
	}
	if *listenAddr == "" {
		fmt.Fprintln(os.Stderr, "error: --listen must be non-empty")
		os.Exit(2)
	}
	if *readHeaderTimeout <= 0 || *readTimeout <= 0 || *writeTimeout <= 0 || *idleTimeout <= 0 {
		fmt.Fprintln(os.Stderr, "error: timeouts must be > 0")
		os.Exit(2)
	}
	if *rateLimitPerSecond <= 0 || *rateLimitBurst <= 0 || *rateLimitMaxIPs <= 0 {
		fmt.Fprintln(os.Stderr, "error: rate limit settings must be > 0")
		os.Exit(2)
	}
	if *maxBlobSize <= 0 {
		fmt.Fprintln(os.Stderr, "error: --max-blob-size must be > 0")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store state.Store
	switch strings.ToLower(strings.TrimSpace(*storeDriver)) {
	case "postgres":
		if strings.TrimSpace(*postgresDSN) == "" {
			fmt.Fprintln(os.Stderr, "error: --postgres-dsn is required when --store-driver=postgres")
			os.Exit(2)
		}
		pool, err := pgxpool.New(ctx, *postgresDSN)
		if err != nil {
			log.Error("init pgx pool", "err", err)
			os.Exit(2)
		}
		defer pool.Close()

		pgStore, err := statepg.New(pool)
		if err != nil {
			log.Error("init state store", "err", err)
			os.Exit(2)
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("ensure state schema", "err", err)
			os.Exit(2)
		}
		store = pgStore
	case "memory":
		store = state.NewMemoryStore()
	default:
		fmt.Fprintf(os.Stderr, "error: unsupported --store-driver %q\n", *storeDriver)
		os.Exit(2)
	}

	blobs, err := newBlobStore(ctx, *blobDriver, *blobBucket, *blobPrefix, *maxBlobSize)
	if err != nil {
		log.Error("init blob store", "err", err)
		os.Exit(2)
	}

	var orc oracle.Oracle
	switch strings.ToLower(strings.TrimSpace(*oracleDriver)) {
	case "memory":
		orc = oracle.NewMemoryOracle()
	case "contract":
		orc, err = newContractOracle(ctx, contractOracleConfig{
			rpcURL:      *oracleRPCURL,
			contract:    *oracleContract,
			chainID:     *oracleChainID,
			keyHex:      *oracleKeyHex,
			keyFile:     *oracleKeyFile,
			keySecret:   *oracleKeySecret,
			minTipCap:   *oracleMinTipCap,
			receiptPoll: *oracleReceiptPoll,
		})
		if err != nil {
			log.Error("init contract oracle", "err", err)
			os.Exit(2)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unsupported --oracle-driver %q\n", *oracleDriver)
		os.Exit(2)
	}

	var opts []registry.Option
	opts = append(opts, registry.WithLogger(log))
	if strings.TrimSpace(*queueBrokers) != "" || strings.EqualFold(*queueDriver, queue.DriverStdio) {
		producer, producerErr := queue.NewProducer(queue.ProducerConfig{
			Driver:  *queueDriver,
			Brokers: queue.SplitCommaList(*queueBrokers),
		})
		if producerErr != nil {
			log.Error("init queue producer", "err", producerErr)
			os.Exit(2)
		}
		defer func() { _ = producer.Close() }()

		emitter, emitterErr := events.NewEmitter(producer, *eventTopic, log)
		if emitterErr != nil {
			log.Error("init event emitter", "err", emitterErr)
			os.Exit(2)
		}
		opts = append(opts, registry.WithEventSink(emitter))
		log.Info("lifecycle event publishing enabled", "queueDriver", *queueDriver, "topic", *eventTopic)
	}

	engine, err := registry.New(registry.Config{
		Admin:                common.HexToAddress(*adminAddr),
		Treasury:             common.HexToAddress(*treasuryAddr),
		OracleAccount:        common.HexToAddress(*oracleAddr),
		Arbitrator:           common.HexToAddress(*arbitratorStr),
		MinBond:              *minBond,
		FeePercent:           *feePercent,
		QuestionTemplateID:   uint32(*questionTemplateID),
		CommitRevealTimeout:  *commitRevealTimeout,
		IncentiveMaxDuration: *incentiveMaxDuration,
		ClawbackDelay:        *clawbackDelay,
		OracleTimeout:        *oracleTimeout,
		OracleOpeningDelay:   *oracleOpeningDelay,
	}, store, ledger.NewMemoryLedger(), orc, opts...)
	if err != nil {
		log.Error("init registry engine", "err", err)
		os.Exit(2)
	}

	handler, err := httpapi.NewHandler(httpapi.Config{
		Engine:                  engine,
		Blobs:                   blobs,
		Attests:                 attest.NewRegistry(),
		Metrics:                 httpapi.NewMetrics(),
		RateLimitPerIPPerSecond: *rateLimitPerSecond,
		RateLimitBurst:          *rateLimitBurst,
		RateLimitMaxTrackedIPs:  *rateLimitMaxIPs,
		Now:                     time.Now,
	})
	if err != nil {
		log.Error("init registry api handler", "err", err)
		os.Exit(2)
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: *readHeaderTimeout,
		ReadTimeout:       *readTimeout,
		WriteTimeout:      *writeTimeout,
		IdleTimeout:       *idleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("registryd listening", "addr", *listenAddr, "storeDriver", *storeDriver, "minBond", *minBond)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown", "reason", ctx.Err())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newBlobStore(ctx context.Context, driver, bucket, prefix string, maxBlobSize int64) (blobstore.Store, error) {
	cfg := blobstore.Config{
		Driver:      strings.ToLower(strings.TrimSpace(driver)),
		Bucket:      strings.TrimSpace(bucket),
		Prefix:      strings.TrimSpace(prefix),
		MaxBlobSize: maxBlobSize,
	}
	if cfg.Driver == blobstore.DriverS3 {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		cfg.S3Client = awss3.NewFromConfig(awsCfg)
	}
	return blobstore.New(cfg)
}
