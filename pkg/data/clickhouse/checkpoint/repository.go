package checkpoint

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/blockrelay/peerfetch/pkg/clickhouse"
)

// Repository is the ClickHouse-specific checkpoint store. checkpointer.go
// adapts it to the generic checkpointer.Checkpointer interface.
type Repository interface {
	CreateTableIfNotExists(ctx context.Context) error
	WriteCheckpoint(ctx context.Context, checkpoint *Checkpoint) error
	ReadCheckpoint(ctx context.Context, chainID uint64) (*Checkpoint, error)
	DeleteCheckpoints(ctx context.Context, chainID uint64) error
}

var _ Repository = (*repository)(nil)

//go:embed queries/create-table-local.sql
var createTableLocalQuery string

//go:embed queries/create-table.sql
var createTableQuery string

//go:embed queries/write-checkpoint.sql
var writeCheckpointQuery string

//go:embed queries/read-checkpoint.sql
var readCheckpointQuery string

//go:embed queries/delete-checkpoints.sql
var deleteCheckpointsQuery string

type repository struct {
	client    clickhouse.Client
	cluster   string
	database  string
	tableName string
}

// NewRepository creates a checkpoint repository and ensures its table exists.
func NewRepository(client clickhouse.Client, cluster, database, tableName string) (Repository, error) {
	repo := &repository{client: client, cluster: cluster, database: database, tableName: tableName}
	if err := repo.CreateTableIfNotExists(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

// CreateTableIfNotExists creates the local (per-shard) checkpoints table and
// the distributed table that fans out writes/reads across the cluster.
func (r *repository) CreateTableIfNotExists(ctx context.Context) error {
	query := fmt.Sprintf(createTableLocalQuery, r.database, r.tableName, r.cluster, r.tableName)
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create checkpoints local table: %w", err)
	}

	query = fmt.Sprintf(createTableQuery, r.database, r.tableName, r.cluster, r.cluster, r.database, r.tableName)
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	return nil
}

// WriteCheckpoint persists checkpoint to ClickHouse.
func (r *repository) WriteCheckpoint(ctx context.Context, checkpoint *Checkpoint) error {
	query := fmt.Sprintf(writeCheckpointQuery, r.database, r.tableName)
	err := r.client.Conn().Exec(ctx, query, checkpoint.ChainID, checkpoint.Lowest, checkpoint.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// ReadCheckpoint retrieves the most recent checkpoint for chainID. If none
// has been written yet it returns nil together with the error from
// scanning the empty result.
func (r *repository) ReadCheckpoint(ctx context.Context, chainID uint64) (*Checkpoint, error) {
	var cp Checkpoint
	query := fmt.Sprintf(readCheckpointQuery, r.database, r.tableName)
	err := r.client.Conn().QueryRow(ctx, query, chainID).Scan(&cp.ChainID, &cp.Lowest, &cp.Timestamp)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// DeleteCheckpoints removes every checkpoint recorded for chainID.
func (r *repository) DeleteCheckpoints(ctx context.Context, chainID uint64) error {
	query := fmt.Sprintf(deleteCheckpointsQuery, r.database, r.tableName, r.cluster)
	if err := r.client.Conn().Exec(ctx, query, chainID); err != nil {
		return fmt.Errorf("failed to delete checkpoints: %w", err)
	}
	return nil
}
