package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tckz/go-redis-visits/internal/config"
	"github.com/tckz/go-redis-visits/internal/counter"
	"github.com/tckz/go-redis-visits/internal/log"
	"github.com/tckz/go-redis-visits/internal/metrics"
	"github.com/tckz/go-redis-visits/internal/server"
	"github.com/tckz/go-redis-visits/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	cfg = config.Load()

	optLogLevel        = flag.String("log-level", cfg.LogLevel, "info|warn|error")
	optLogFormat       = flag.String("log-format", "json", "json|console")
	optPort            = flag.String("port", cfg.Port, "port to listen on")
	optRedis           = flag.String("redis", cfg.RedisAddr, "addr:port of redis, empty to keep the counter in process")
	optCounterKey      = flag.String("counter-key", cfg.CounterKey, "key of redis")
	optMode            = flag.String("mode", cfg.Mode, "getset|incr")
	optSeed            = flag.Bool("seed", cfg.Seed, "reset the counter to 0 on startup")
	optShutdownTimeout = flag.Duration("shutdown-timeout", 10*time.Second, "Grace period for in-flight requests")
)

type options struct {
	port            string
	redis           string
	counterKey      string
	mode            counter.Mode
	seed            bool
	shutdownTimeout time.Duration
	// onListen is called once the port is bound.
	onListen func(addr net.Addr)
}

func main() {
	flag.Parse()

	logger = log.Must(log.NewLogger(
		log.WithLogLevel(*optLogLevel),
		log.WithEncoding(*optLogFormat),
		log.WithApp(myName),
	)).Sugar()

	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	mode, err := counter.ParseMode(*optMode)
	if err != nil {
		logger.Fatalf("*** --mode: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, options{
		port:            *optPort,
		redis:           *optRedis,
		counterKey:      *optCounterKey,
		mode:            mode,
		seed:            *optSeed,
		shutdownTimeout: *optShutdownTimeout,
	}); err != nil {
		logger.Fatalf("*** run: %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("metrics.New: %w", err)
	}

	var backend store.Store
	if opts.redis == "" {
		logger.Warnf("--redis is empty, the counter is kept in process")
		backend = store.NewLocalStore()
	} else {
		backend = store.NewRedisStore(opts.redis)
	}

	conn := store.NewConn(store.NewInstrumented(backend, m), store.WithOnError(func(err error) {
		logger.With(zap.Error(err)).Errorf("*** Store connection error. Make sure redis is running at %s before starting the server, e.g. docker run -p 6379:6379 -it redis/redis-stack-server:latest", opts.redis)
	}))
	defer conn.Close()

	{
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := conn.Connect(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("conn.Connect: %w", err)
		}
	}
	logger.Infof("Store connected, state=%s", conn.State())

	c := counter.New(conn, counter.WithKey(opts.counterKey), counter.WithMode(opts.mode))
	if opts.seed {
		if err := c.Seed(ctx); err != nil {
			return fmt.Errorf("Seed: %w", err)
		}
		logger.Infof("Seeded %s=0", c.Key())
	}
	if opts.mode == counter.ModeGetSet {
		logger.Infof("mode=%s, concurrent requests may lose updates", opts.mode)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", opts.port))
	if err != nil {
		return fmt.Errorf("net.Listen: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	logger.Infof("Server listening at http://localhost:%d", port)
	if opts.onListen != nil {
		opts.onListen(ln.Addr())
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Handler: server.New(c, conn, server.WithLogger(logger), server.WithMetrics(m, m.Handler())).Handler(),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Infof("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	if err := eg.Wait(); err != nil {
		logger.Errorf("Wait: %v", err)
	}

	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if v, err := c.Current(ctx); err != nil {
			logger.Errorf("Current: %v", err)
		} else {
			logger.Infof("Counter=%s", humanize.Comma(v))
		}
	}
	return nil
}
