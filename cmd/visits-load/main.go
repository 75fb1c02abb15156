package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/joho/godotenv"
	"github.com/tckz/go-redis-visits/internal/counter"
	"github.com/tckz/go-redis-visits/internal/log"
	"github.com/tckz/go-redis-visits/internal/store"
	vh "github.com/tckz/vegetahelper"
	vegeta "github.com/tsenart/vegeta/v12/lib"
	"go.uber.org/zap"
)

var (
	myName  = filepath.Base(os.Args[0])
	logger  *zap.SugaredLogger
	version string
)

var (
	optRate = &vh.RateFlag{
		Rate: &vegeta.Rate{
			Freq: 30,
			Per:  1 * time.Second,
		}}
	optDuration   = flag.Duration("duration", 10*time.Second, "Duration of the test [0 = forever]")
	optOutput     = flag.String("output", "", "/path/to/results.bin or 'stdout'")
	optWorkers    = flag.Uint64("workers", vegeta.DefaultWorkers, "Number of workers")
	optLogLevel   = flag.String("log-level", "info", "info|warn|error")
	optTarget     = flag.String("target", "http://localhost:8081/", "URL of the counter endpoint")
	optCheckRedis = flag.String("check-redis", "", "addr:port of redis, compare the counter advance with successful hits")
	optCounterKey = flag.String("counter-key", counter.DefaultKey, "key of redis")
)

func init() {
	godotenv.Load()

	flag.Var(optRate, "rate", "Number of requests per time unit")
	flag.Parse()

	logger = log.Must(log.NewLogger(log.WithLogLevel(*optLogLevel), log.WithApp(myName))).Sugar()
}

type nopWriteCloser struct {
	io.Writer
}

func (c nopWriteCloser) Close() error {
	return nil
}

func openResultFile(out string) (io.WriteCloser, error) {
	switch out {
	case "stdout":
		return &nopWriteCloser{os.Stdout}, nil
	default:
		return os.Create(out)
	}
}

type visitResponse struct {
	Data  string `json:"data"`
	Error string `json:"error"`
}

func hit(ctx context.Context, cl *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	res, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("cl.Do: %w", err)
	}
	defer res.Body.Close()

	var body visitResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("json.Decode: status=%d, %w", res.StatusCode, err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d, error=%s", res.StatusCode, body.Error)
	}
	return nil
}

func main() {
	logger.Infof("ver=%s, args=%s", version, os.Args)
	defer logger.Infof("done")

	if *optOutput == "" {
		logger.Fatalf("*** --output must be specified.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c *counter.Counter
	var before int64
	if *optCheckRedis != "" {
		s := store.NewRedisStore(*optCheckRedis)
		defer s.Close()
		c = counter.New(s, counter.WithKey(*optCounterKey))

		v, err := c.Current(ctx)
		if err != nil {
			logger.Fatalf("*** Current: %v", err)
		}
		before = v
	}

	cl := cleanhttp.DefaultPooledClient()
	var okHits int64
	atk := vh.NewAttacker(func(ctx context.Context) (result *vh.HitResult, retErr error) {
		if err := hit(ctx, cl, *optTarget); err != nil {
			return nil, err
		}
		atomic.AddInt64(&okHits, 1)
		return result, nil
	}, vh.WithWorkers(*optWorkers))
	res := atk.Attack(ctx, *optRate.Rate, *optDuration, "visits")

	out, err := openResultFile(*optOutput)
	if err != nil {
		logger.Fatal(err)
	}
	defer out.Close()
	enc := vegeta.NewEncoder(out)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)

loop:
	for {
		select {
		case s := <-sig:
			logger.Infof("Received signal: %s", s)
			cancel()
			// keep loop until 'res' is closed.
		case r, ok := <-res:
			if !ok {
				break loop
			}
			if err := enc.Encode(r); err != nil {
				logger.Errorf("*** Encode: %v", err)
				break loop
			}
		}
	}

	logger.Infof("okHits=%s", humanize.Comma(okHits))

	if c != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		after, err := c.Current(ctx)
		if err != nil {
			logger.Errorf("Current: %v", err)
			return
		}
		advance := after - before
		logger.Infof("counter %s -> %s, advance=%s, lost=%s",
			humanize.Comma(before), humanize.Comma(after), humanize.Comma(advance), humanize.Comma(okHits-advance))
	}
}
