package recording

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/tebeka/atexit"
)

// ClickHouseRecorder ships run telemetry to a ClickHouse server instead of a
// local SQLite file. It holds type-specific batches for the hot tables, so
// inserting a step attempt costs no reflection.
type ClickHouseRecorder struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	raiseBatch   []SplitRaiseEntry
	attemptBatch []StepAttemptEntry
	runInfoBatch []runInfo

	tables     map[string]struct{}
	entryCount int
}

// NewClickHouseRecorder connects to a ClickHouse server and returns a
// recorder over it. A zero batchSize picks a default.
func NewClickHouseRecorder(
	host string,
	port int,
	database, username, password string,
	batchSize int,
) DataRecorder {
	if batchSize == 0 {
		batchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	r := &ClickHouseRecorder{
		conn:      conn,
		batchSize: batchSize,
		tables:    make(map[string]struct{}),
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// CreateTable creates one of the known run-telemetry tables.
func (r *ClickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var createSQL string

	switch sampleEntry.(type) {
	case runInfo:
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				Property String,
				Value String
			) ENGINE = MergeTree()
			ORDER BY Property
		`, tableName)
	case SplitRaiseEntry:
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				RunID String,
				BatchIndex Int64,
				PreviousK Int64,
				NewK Int64,
				TimeSeconds Float64
			) ENGINE = MergeTree()
			ORDER BY (RunID, BatchIndex)
		`, tableName)
	case StepAttemptEntry:
		createSQL = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				RunID String,
				BatchIndex Int64,
				BatchSize Int64,
				SplitFactor Int64,
				Attempt Int64,
				Outcome String,
				TimeSeconds Float64
			) ENGINE = MergeTree()
			ORDER BY (RunID, BatchIndex, Attempt)
		`, tableName)
	default:
		panic(fmt.Sprintf(
			"ClickHouse recorder does not know entry type %T", sampleEntry))
	}

	err := r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = struct{}{}
}

// InsertData buffers an entry for one of the known tables.
func (r *ClickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[tableName]; !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	switch e := entry.(type) {
	case SplitRaiseEntry:
		r.raiseBatch = append(r.raiseBatch, e)
	case StepAttemptEntry:
		r.attemptBatch = append(r.attemptBatch, e)
	case runInfo:
		r.runInfoBatch = append(r.runInfoBatch, e)
	default:
		panic(fmt.Sprintf(
			"ClickHouse recorder does not know entry type %T", entry))
	}

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.flushLocked()
	}
}

// ListTables returns the names of the created tables.
func (r *ClickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, 0, len(r.tables))
	for table := range r.tables {
		tables = append(tables, table)
	}

	return tables
}

// Flush writes all the buffered entries into ClickHouse.
func (r *ClickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.flushLocked()
}

func (r *ClickHouseRecorder) flushLocked() {
	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	if len(r.raiseBatch) > 0 {
		batch, err := r.conn.PrepareBatch(ctx,
			"INSERT INTO "+SplitRaiseTable)
		if err != nil {
			panic(err)
		}

		for _, e := range r.raiseBatch {
			err := batch.Append(
				e.RunID,
				int64(e.BatchIndex),
				int64(e.PreviousK),
				int64(e.NewK),
				e.TimeSeconds,
			)
			if err != nil {
				panic(err)
			}
		}

		if err := batch.Send(); err != nil {
			panic(err)
		}

		r.raiseBatch = nil
	}

	if len(r.attemptBatch) > 0 {
		batch, err := r.conn.PrepareBatch(ctx,
			"INSERT INTO "+StepAttemptTable)
		if err != nil {
			panic(err)
		}

		for _, e := range r.attemptBatch {
			err := batch.Append(
				e.RunID,
				int64(e.BatchIndex),
				int64(e.BatchSize),
				int64(e.SplitFactor),
				int64(e.Attempt),
				e.Outcome,
				e.TimeSeconds,
			)
			if err != nil {
				panic(err)
			}
		}

		if err := batch.Send(); err != nil {
			panic(err)
		}

		r.attemptBatch = nil
	}

	if len(r.runInfoBatch) > 0 {
		batch, err := r.conn.PrepareBatch(ctx,
			"INSERT INTO "+RunInfoTable)
		if err != nil {
			panic(err)
		}

		for _, e := range r.runInfoBatch {
			err := batch.Append(e.Property, e.Value)
			if err != nil {
				panic(err)
			}
		}

		if err := batch.Send(); err != nil {
			panic(err)
		}

		r.runInfoBatch = nil
	}

	r.entryCount = 0
}

// Close flushes and closes the connection.
func (r *ClickHouseRecorder) Close() {
	r.Flush()

	err := r.conn.Close()
	if err != nil {
		panic(err)
	}
}
