package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ava-labs/coreth/plugin/evm/customethclient"
	"github.com/ava-labs/coreth/rpc"
	confluentkafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/blockrelay/peerfetch/internal/chain"
	"github.com/blockrelay/peerfetch/internal/peerpool"
	"github.com/blockrelay/peerfetch/pkg/checkpointer"
	"github.com/blockrelay/peerfetch/pkg/clickhouse"
	"github.com/blockrelay/peerfetch/pkg/data/clickhouse/checkpoint"
	"github.com/blockrelay/peerfetch/pkg/data/clickhouse/headerstore"
	"github.com/blockrelay/peerfetch/pkg/fetcher"
	"github.com/blockrelay/peerfetch/pkg/fetcher/body"
	"github.com/blockrelay/peerfetch/pkg/fetcher/events"
	"github.com/blockrelay/peerfetch/pkg/fetcher/header"
	fetchmetrics "github.com/blockrelay/peerfetch/pkg/fetcher/metrics"
	"github.com/blockrelay/peerfetch/pkg/fetcher/rpctransport"
	"github.com/blockrelay/peerfetch/pkg/metrics"
	"github.com/blockrelay/peerfetch/pkg/queue"
	"github.com/blockrelay/peerfetch/pkg/utils"
)

// headerReceivingEvents wraps the configured Events sink and additionally
// records every accepted header, so the run command can build body.Task
// work after the header fetch finishes without the chain store exposing a
// header-listing method of its own.
type headerReceivingEvents struct {
	inner fetcher.Events

	mu      sync.Mutex
	headers []chain.Header
}

func (h *headerReceivingEvents) Emit(name string, payload any) {
	h.inner.Emit(name, payload)
	if name != fetcher.EventFetchedHeaders {
		return
	}
	accepted, ok := payload.([]chain.Header)
	if !ok {
		return
	}
	h.mu.Lock()
	h.headers = append(h.headers, accepted...)
	h.mu.Unlock()
}

func (h *headerReceivingEvents) acceptedHeaders() []chain.Header {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]chain.Header(nil), h.headers...)
}

// statusHub serves a point-in-time fetcher.FetchStats snapshot over HTTP,
// letting the "status" command inspect a running "run" command's progress.
// The snapshot source is swapped from the header phase to the body phase
// as the run command progresses.
type statusHub struct {
	mu     sync.Mutex
	phase  string
	source func() fetcher.FetchStats
}

func (h *statusHub) set(phase string, source func() fetcher.FetchStats) {
	h.mu.Lock()
	h.phase, h.source = phase, source
	h.mu.Unlock()
}

func (h *statusHub) handle(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	phase, source := h.phase, h.source
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if source == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"phase": "starting"}) //nolint:errcheck // best-effort
		return
	}
	json.NewEncoder(w).Encode(struct { //nolint:errcheck // best-effort
		Phase string             `json:"phase"`
		Stats fetcher.FetchStats `json:"stats"`
	}{Phase: phase, Stats: source()})
}

func run(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients := make(map[string]*customethclient.Client, len(cfg.RPCURLs))
	var seeds []peerpool.PeerSpec
	for i, url := range cfg.RPCURLs {
		rpcClient, err := rpc.DialContext(ctx, url)
		if err != nil {
			return fmt.Errorf("dial peer %s: %w", url, err)
		}
		id := fmt.Sprintf("peer-%d", i)
		clients[id] = customethclient.New(rpcClient)
		seeds = append(seeds, peerpool.PeerSpec{ID: id, Capabilities: []string{"serve_headers", "serve_bodies"}})
	}
	transport := rpctransport.New(clients)

	pool := peerpool.NewPool(sugar, 30*time.Second, seeds...)
	defer pool.Close()

	chCfg := clickhouse.Load()
	chClient, err := clickhouse.New(chCfg, sugar)
	if err != nil {
		return fmt.Errorf("create clickhouse client: %w", err)
	}
	defer chClient.Close() //nolint:errcheck // best-effort close on shutdown

	store, err := headerstore.New(ctx, chClient, sugar, cfg.HeadersTable, cfg.BodiesTable)
	if err != nil {
		return fmt.Errorf("create header store: %w", err)
	}

	checkpointRepo, err := checkpoint.NewRepository(chClient, cfg.ClickHouseCluster, chCfg.Database, cfg.CheckpointTable)
	if err != nil {
		return fmt.Errorf("create checkpoint repository: %w", err)
	}
	chk := checkpoint.NewCheckpointer(checkpointRepo)

	eventSink, closeEvents, err := buildEventSink(ctx, cfg, sugar)
	if err != nil {
		return fmt.Errorf("create event sink: %w", err)
	}
	defer closeEvents()
	recorder := &headerReceivingEvents{inner: eventSink}

	reg := prometheus.NewRegistry()
	m, err := fetchmetrics.New(reg)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr, reg)
	metricsErrCh := metricsServer.Start()
	defer metricsServer.Shutdown(context.Background()) //nolint:errcheck // best-effort

	hub := &statusHub{phase: "starting"}
	statusMux := http.NewServeMux()
	statusMux.HandleFunc("/status", hub.handle)
	statusServer := &http.Server{Addr: cfg.StatusAddr, Handler: statusMux, ReadHeaderTimeout: 10 * time.Second}
	go statusServer.ListenAndServe() //nolint:errcheck // best-effort; shut down below
	defer statusServer.Shutdown(context.Background())

	opts := fetcher.Options{
		Timeout:           cfg.RequestTimeout,
		Interval:          time.Second,
		BanTime:           cfg.BanTime,
		MaxQueue:          cfg.MaxQueue,
		DestroyWhenDone:   true,
		SafeReorgDistance: cfg.SafeReorgDistance,
	}

	flow := header.NewInMemoryFlowControl(cfg.JobSize)
	headerFetcher := header.New(sugar, transport, flow, store, recorder, m, cfg.JobSize)
	headerEngine, err := fetcher.New[*header.Task, header.Reply](sugar, pool, headerFetcher, opts, recorder, m)
	if err != nil {
		return fmt.Errorf("create header engine: %w", err)
	}
	hub.set("headers", headerEngine.Stats)

	select {
	case err := <-metricsErrCh:
		if err != nil {
			return err
		}
	default:
	}

	checkpointCtx, stopCheckpointer := context.WithCancel(ctx)
	checkpointErrCh := make(chan error, 1)
	go func() {
		checkpointErrCh <- checkpointer.Start(
			checkpointCtx,
			func() uint64 { return headerEngine.Stats().Processed },
			chk,
			checkpointer.Config{
				Interval:     cfg.CheckpointInterval,
				WriteTimeout: checkpointer.DefaultConfig().WriteTimeout,
				MaxRetries:   checkpointer.DefaultConfig().MaxRetries,
				RetryBackoff: checkpointer.DefaultConfig().RetryBackoff,
			},
			cfg.ChainID,
		)
	}()

	if err := runEngineWithTasks(ctx, headerEngine, headerRangeTasks(cfg)); err != nil {
		stopCheckpointer()
		<-checkpointErrCh
		return fmt.Errorf("header fetch: %w", err)
	}
	sugar.Infow("header fetch complete", "accepted", len(recorder.acceptedHeaders()))

	stopCheckpointer()
	if err := <-checkpointErrCh; err != nil {
		sugar.Warnw("checkpoint writer stopped with an error", "error", err)
	}

	if !cfg.FetchBodies {
		return nil
	}

	bodyFetcher := body.New(sugar, transport, store, recorder, m)
	bodyEngine, err := fetcher.New[*body.Task, body.Reply](sugar, pool, bodyFetcher, opts, recorder, m)
	if err != nil {
		return fmt.Errorf("create body engine: %w", err)
	}
	hub.set("bodies", bodyEngine.Stats)

	refs := toHeaderRefs(recorder.acceptedHeaders())
	if err := runEngineWithTasks(ctx, bodyEngine, bodyRangeTasks(refs, cfg.JobSize)); err != nil {
		return fmt.Errorf("body fetch: %w", err)
	}
	sugar.Info("body fetch complete")
	return nil
}

// runEngineWithTasks runs engine.Fetch concurrently with feeding it tasks,
// since EnqueueTask's single-slot channel only drains while Fetch's select
// loop is running — enqueuing everything up front before calling Fetch
// would deadlock past the first task.
func runEngineWithTasks[T fetcher.Task, R any](ctx context.Context, engine *fetcher.Engine[T, R], tasks []T) error {
	errCh := make(chan error, 1)
	go func() { errCh <- engine.Fetch(ctx) }()

	for _, t := range tasks {
		engine.EnqueueTask(t)
	}

	return <-errCh
}

func headerRangeTasks(cfg Config) []*header.Task {
	var tasks []*header.Task
	for n := cfg.StartHeight; n < cfg.StartHeight+cfg.Count; n += uint64(cfg.JobSize) {
		remaining := cfg.StartHeight + cfg.Count - n
		size := uint64(cfg.JobSize)
		if remaining < size {
			size = remaining
		}
		tasks = append(tasks, header.NewTask(bigFromUint64(n), int(size)))
	}
	return tasks
}

func bodyRangeTasks(refs []header.HeaderRef, jobSize int) []*body.Task {
	var tasks []*body.Task
	for i := 0; i < len(refs); i += jobSize {
		end := i + jobSize
		if end > len(refs) {
			end = len(refs)
		}
		tasks = append(tasks, body.NewTask(refs[i:end]))
	}
	return tasks
}

func bigFromUint64(n uint64) *big.Int {
	return new(big.Int).SetUint64(n)
}

func toHeaderRefs(headers []chain.Header) []header.HeaderRef {
	refs := make([]header.HeaderRef, len(headers))
	for i, h := range headers {
		refs[i] = header.HeaderRef{Hash: h.Hash, Number: h.Number}
	}
	return refs
}

func buildEventSink(ctx context.Context, cfg Config, sugar *zap.SugaredLogger) (fetcher.Events, func(), error) {
	if cfg.KafkaBrokers == "" {
		return events.Noop{}, func() {}, nil
	}

	conf := &confluentkafka.ConfigMap{
		"bootstrap.servers":  cfg.KafkaBrokers,
		"client.id":          "peerfetchd",
		"acks":               "all",
		"linger.ms":          5,
		"enable.idempotence": true,
	}
	publisher, err := queue.NewKafkaPublisher(ctx, conf, sugar)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	sink := events.NewKafka(publisher, cfg.KafkaTopic, sugar)
	return sink, func() { publisher.Close(context.Background()) }, nil
}
