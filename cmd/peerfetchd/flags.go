package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

var runFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
	},
	&cli.Uint64Flag{
		Name:     "chain-id",
		Aliases:  []string{"C"},
		Usage:    "The EVM chain ID being fetched",
		EnvVars:  []string{"CHAIN_ID"},
		Required: true,
	},
	&cli.StringSliceFlag{
		Name:     "rpc-url",
		Aliases:  []string{"r"},
		Usage:    "A peer's JSON-RPC URL; may be repeated to seed multiple peers",
		EnvVars:  []string{"RPC_URLS"},
		Required: true,
	},
	&cli.Uint64Flag{
		Name:     "start-height",
		Aliases:  []string{"s"},
		Usage:    "The first block height to fetch",
		EnvVars:  []string{"START_HEIGHT"},
		Required: true,
	},
	&cli.Uint64Flag{
		Name:     "count",
		Aliases:  []string{"n"},
		Usage:    "The number of consecutive blocks to fetch starting at start-height",
		EnvVars:  []string{"COUNT"},
		Required: true,
	},
	&cli.IntFlag{
		Name:    "job-size",
		Usage:   "The number of headers each dispatched job covers",
		EnvVars: []string{"JOB_SIZE"},
		Value:   32,
	},
	&cli.BoolFlag{
		Name:    "fetch-bodies",
		Usage:   "Additionally fetch bodies for every accepted header",
		EnvVars: []string{"FETCH_BODIES"},
	},
	&cli.IntFlag{
		Name:    "max-queue",
		Usage:   "Bound on the in-flight window and emit pipeline depth",
		EnvVars: []string{"MAX_QUEUE"},
		Value:   4,
	},
	&cli.DurationFlag{
		Name:    "request-timeout",
		Usage:   "Per-request deadline before a job is expired",
		EnvVars: []string{"REQUEST_TIMEOUT"},
		Value:   8 * time.Second,
	},
	&cli.DurationFlag{
		Name:    "ban-time",
		Usage:   "Duration a peer is banned for after a timeout or irrecoverable error",
		EnvVars: []string{"BAN_TIME"},
		Value:   60 * time.Second,
	},
	&cli.Uint64Flag{
		Name:    "safe-reorg-distance",
		Usage:   "Bound on how far back a reorg rewrite may rewind a task",
		EnvVars: []string{"SAFE_REORG_DISTANCE"},
		Value:   64,
	},
	&cli.StringFlag{
		Name:    "headers-table",
		Usage:   "The ClickHouse table to write headers to",
		EnvVars: []string{"HEADERS_TABLE"},
		Value:   "headers",
	},
	&cli.StringFlag{
		Name:    "bodies-table",
		Usage:   "The ClickHouse table to write bodies to",
		EnvVars: []string{"BODIES_TABLE"},
		Value:   "bodies",
	},
	&cli.StringFlag{
		Name:    "kafka-brokers",
		Usage:   "Comma-separated Kafka brokers for event publication; events are dropped if unset",
		EnvVars: []string{"KAFKA_BROKERS"},
	},
	&cli.StringFlag{
		Name:    "kafka-topic",
		Usage:   "The Kafka topic SYNC_FETCHED_HEADERS/SYNC_FETCHER_ERROR events are published to",
		EnvVars: []string{"KAFKA_TOPIC"},
		Value:   "sync-events",
	},
	&cli.StringFlag{
		Name:    "metrics-addr",
		Usage:   "Address the Prometheus metrics server listens on",
		EnvVars: []string{"METRICS_ADDR"},
		Value:   ":9090",
	},
	&cli.StringFlag{
		Name:    "status-addr",
		Usage:   "Address the point-in-time status endpoint listens on",
		EnvVars: []string{"STATUS_ADDR"},
		Value:   ":9091",
	},
	&cli.StringFlag{
		Name:    "clickhouse-cluster",
		Usage:   "The ClickHouse cluster name used to create distributed checkpoint tables",
		EnvVars: []string{"CLICKHOUSE_CLUSTER"},
		Value:   "cluster1",
	},
	&cli.StringFlag{
		Name:    "checkpoint-table",
		Usage:   "The ClickHouse table checkpoints are written to",
		EnvVars: []string{"CHECKPOINT_TABLE"},
		Value:   "checkpoints",
	},
	&cli.DurationFlag{
		Name:    "checkpoint-interval",
		Usage:   "Interval between checkpoint writes of the header fetch's lowest contiguous index",
		EnvVars: []string{"CHECKPOINT_INTERVAL"},
		Value:   30 * time.Second,
	},
}

var statusFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "status-addr",
		Usage:   "The status endpoint address of a running peerfetchd run command",
		EnvVars: []string{"STATUS_ADDR"},
		Value:   "localhost:9091",
	},
}
