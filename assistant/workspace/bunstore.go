package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
)

// WorkspaceFile is the persisted form of one workspace file.
type WorkspaceFile struct {
	bun.BaseModel `bun:"table:workspace_files"`

	ID        int64     `bun:"id,pk,autoincrement"`
	TaskID    string    `bun:"task_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Content   string    `bun:"content,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// PostgresConfig configures the Postgres-backed workspace store.
type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresStore keeps workspace files in Postgres so tasks survive process
// restarts and can be inspected with plain SQL.
type PostgresStore struct {
	db *bun.DB
}

var _ contractx.WorkspaceStore = (*PostgresStore)(nil)

// NewPostgresStore opens the database and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping workspace database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the workspace table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*WorkspaceFile)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create workspace_files table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*WorkspaceFile)(nil)).
		Index("workspace_files_task_name_idx").
		Unique().
		IfNotExists().
		Column("task_id", "name").
		Exec(ctx); err != nil {
		return fmt.Errorf("create workspace_files index: %w", err)
	}
	return nil
}

// Close releases the underlying connections.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, taskID, name, content string) error {
	now := time.Now().UTC()
	file := &WorkspaceFile{
		TaskID:    taskID,
		Name:      name,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().
		Model(file).
		On("CONFLICT (task_id, name) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("create workspace file %s/%s: %w", taskID, name, err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, taskID, name string) (string, error) {
	var file WorkspaceFile
	err := s.db.NewSelect().
		Model(&file).
		Where("task_id = ?", taskID).
		Where("name = ?", name).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", contractx.ErrFileNotFound, taskID, name)
	}
	if err != nil {
		return "", fmt.Errorf("read workspace file %s/%s: %w", taskID, name, err)
	}
	return file.Content, nil
}

func (s *PostgresStore) Update(ctx context.Context, taskID, name, content string) error {
	res, err := s.db.NewUpdate().
		Model((*WorkspaceFile)(nil)).
		Set("content = ?", content).
		Set("updated_at = ?", time.Now().UTC()).
		Where("task_id = ?", taskID).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update workspace file %s/%s: %w", taskID, name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workspace file %s/%s: %w", taskID, name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", contractx.ErrFileNotFound, taskID, name)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, taskID, name string) error {
	res, err := s.db.NewDelete().
		Model((*WorkspaceFile)(nil)).
		Where("task_id = ?", taskID).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete workspace file %s/%s: %w", taskID, name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workspace file %s/%s: %w", taskID, name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", contractx.ErrFileNotFound, taskID, name)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, taskID string) ([]string, error) {
	var names []string
	if err := s.db.NewSelect().
		Model((*WorkspaceFile)(nil)).
		Column("name").
		Where("task_id = ?", taskID).
		Order("name ASC").
		Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("list workspace files for task %q: %w", taskID, err)
	}
	return names, nil
}
