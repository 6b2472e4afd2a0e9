package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

// Config holds the parsed "run" command configuration.
type Config struct {
	Verbose            bool
	ChainID            uint64
	RPCURLs            []string
	StartHeight        uint64
	Count              uint64
	JobSize            int
	FetchBodies        bool
	MaxQueue           int
	RequestTimeout     time.Duration
	BanTime            time.Duration
	SafeReorgDistance  uint64
	HeadersTable       string
	BodiesTable        string
	KafkaBrokers       string
	KafkaTopic         string
	MetricsAddr        string
	StatusAddr         string
	ClickHouseCluster  string
	CheckpointTable    string
	CheckpointInterval time.Duration
}

func configFromContext(c *cli.Context) (Config, error) {
	cfg := Config{
		Verbose:            c.Bool("verbose"),
		ChainID:            c.Uint64("chain-id"),
		RPCURLs:            c.StringSlice("rpc-url"),
		StartHeight:        c.Uint64("start-height"),
		Count:              c.Uint64("count"),
		JobSize:            c.Int("job-size"),
		FetchBodies:        c.Bool("fetch-bodies"),
		MaxQueue:           c.Int("max-queue"),
		RequestTimeout:     c.Duration("request-timeout"),
		BanTime:            c.Duration("ban-time"),
		SafeReorgDistance:  c.Uint64("safe-reorg-distance"),
		HeadersTable:       c.String("headers-table"),
		BodiesTable:        c.String("bodies-table"),
		KafkaBrokers:       c.String("kafka-brokers"),
		KafkaTopic:         c.String("kafka-topic"),
		MetricsAddr:        c.String("metrics-addr"),
		StatusAddr:         c.String("status-addr"),
		ClickHouseCluster:  c.String("clickhouse-cluster"),
		CheckpointTable:    c.String("checkpoint-table"),
		CheckpointInterval: c.Duration("checkpoint-interval"),
	}

	if len(cfg.RPCURLs) == 0 {
		return Config{}, fmt.Errorf("at least one --rpc-url is required")
	}
	if cfg.JobSize <= 0 {
		return Config{}, fmt.Errorf("job-size must be positive")
	}
	if cfg.Count == 0 {
		return Config{}, fmt.Errorf("count must be positive")
	}
	return cfg, nil
}
