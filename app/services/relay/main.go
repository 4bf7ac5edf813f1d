package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ethrelay/app/services/relay/handlers"
	"github.com/ardanlabs/ethrelay/business/sys/metrics"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint/storage/disk"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethash"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/ethrpc"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/relay"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/worker"
	"github.com/ardanlabs/ethrelay/foundation/events"
	"github.com/ardanlabs/ethrelay/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("RELAY")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			APIHost         string        `conf:"default:0.0.0.0:8080"`
		}
		Node struct {
			URL string `conf:"default:http://localhost:8545,mask"`
		}
		Relay struct {
			PollingDelay   time.Duration `conf:"default:10m"`
			ProofInterval  time.Duration `conf:"default:3s"`
			EpochLength    uint64        `conf:"default:30000"`
			DBPath         string        `conf:"default:zblock/database.json"`
			PersistEvery   uint64        `conf:"default:10"`
			EthashProofDir string        `conf:"default:ethashproof"`
			StartBlock     int64         `conf:"default:-1,help:block to start proving at (-1 resumes from the checkpoint)"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ethash header relay",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "RELAY"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Relay Support

	// The relay packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer cancel()

	node, err := ethrpc.Dial(ctx, cfg.Node.URL)
	if err != nil {
		return fmt.Errorf("connecting to node: %w", err)
	}
	defer node.Close()

	strg, err := disk.New(cfg.Relay.DBPath)
	if err != nil {
		return fmt.Errorf("opening checkpoint storage: %w", err)
	}

	store, err := checkpoint.New(strg)
	if err != nil {
		return fmt.Errorf("loading checkpoint: %w", err)
	}

	// The relay value follows the chain and manages the proofs produced by
	// the ethashproof tooling.
	// A negative start block leaves the choice to the checkpoint.
	var startBlock *uint64
	if cfg.Relay.StartBlock >= 0 {
		n := uint64(cfg.Relay.StartBlock)
		startBlock = &n
	}

	rly, err := relay.New(ctx, relay.Config{
		Node:         node,
		Prover:       ethash.NewProver(cfg.Relay.EthashProofDir, nil, ev),
		Store:        store,
		EpochLength:  cfg.Relay.EpochLength,
		PersistEvery: cfg.Relay.PersistEvery,
		StartBlock:   startBlock,
		EvHandler:    ev,
	})
	if err != nil {
		store.Close()
		return err
	}
	defer rly.Shutdown()

	metrics.PublishRelay(
		func() uint64 { return rly.Status().Head },
		rly.NextBlock,
		func() int { return rly.Status().Proofs },
	)

	// The worker package implements the different workflows such as head
	// polling, proof production and DAG generation. The worker will register
	// itself with the relay.
	worker.Run(rly, cfg.Relay.PollingDelay, cfg.Relay.ProofInterval, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, node)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Relay:    rly,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
