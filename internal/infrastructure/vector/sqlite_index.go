package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// SQLiteIndex 基于 SQLite 的持久化向量索引，查询时全量计算余弦距离
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex 创建 SQLite 向量索引
func NewSQLiteIndex(db *sql.DB) *SQLiteIndex {
	if err := initVectorTables(db); err != nil {
		log.NewModuleLogger("vector", "sqlite").Error("Failed to init vector tables", "error", err)
	}
	return &SQLiteIndex{db: db}
}

// initVectorTables 初始化向量表
func initVectorTables(db *sql.DB) error {
	createSQL := `
	CREATE TABLE IF NOT EXISTS vector_namespaces (
		name TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS vector_entries (
		namespace TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		id TEXT NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		metadata TEXT NOT NULL,
		PRIMARY KEY (namespace, ordinal)
	);`

	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("failed to create vector tables: %w", err)
	}
	return nil
}

// Save 在一个事务中追加条目
func (s *SQLiteIndex) Save(ctx context.Context, namespace string, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureNamespace(ctx, tx, namespace); err != nil {
		return err
	}

	var start int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(ordinal) + 1, 0) FROM vector_entries WHERE namespace = ?", namespace,
	).Scan(&start); err != nil {
		return fmt.Errorf("failed to read namespace size: %w", err)
	}

	entries, err := prepareEntries(namespace, start, records)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO vector_entries (namespace, ordinal, id, text, vector, metadata) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		meta, err := json.Marshal(e.metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, namespace, e.ordinal, e.id, e.text, encodeVector(e.vector), string(meta)); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Query 返回最近的 k 个条目，命名空间不存在时创建
func (s *SQLiteIndex) Query(ctx context.Context, namespace string, vector []float32, k int) ([]rag.Hit, error) {
	if err := ensureNamespace(ctx, s.db, namespace); err != nil {
		return nil, err
	}

	entries, err := s.load(ctx, namespace, true)
	if err != nil {
		return nil, err
	}
	return nearest(entries, vector, k), nil
}

// All 按写入顺序返回全部条目
func (s *SQLiteIndex) All(ctx context.Context, namespace string) ([]rag.Hit, error) {
	entries, err := s.load(ctx, namespace, false)
	if err != nil {
		return nil, err
	}

	out := make([]rag.Hit, 0, len(entries))
	for _, e := range entries {
		out = append(out, rag.Hit{ID: e.id, Text: e.text, Metadata: e.metadata})
	}
	return out, nil
}

// DeleteNamespace 删除命名空间及其条目
func (s *SQLiteIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, "DELETE FROM vector_namespaces WHERE name = ?", namespace)
	if err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return rag.ErrNamespaceNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_entries WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return tx.Commit()
}

// HasNamespace 判断命名空间是否存在
func (s *SQLiteIndex) HasNamespace(ctx context.Context, namespace string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM vector_namespaces WHERE name = ?", namespace,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check namespace: %w", err)
	}
	return n > 0, nil
}

// ListNamespaces 列出命名空间
func (s *SQLiteIndex) ListNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM vector_namespaces ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan namespace: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// load 读取命名空间条目，withVectors 为 false 时不解码向量
func (s *SQLiteIndex) load(ctx context.Context, namespace string, withVectors bool) ([]entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ordinal, id, text, vector, metadata FROM vector_entries WHERE namespace = ? ORDER BY ordinal",
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]entry, 0)
	for rows.Next() {
		var (
			e    entry
			blob []byte
			meta string
		)
		if err := rows.Scan(&e.ordinal, &e.id, &e.text, &blob, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if withVectors {
			e.vector = decodeVector(blob)
		}
		if err := json.Unmarshal([]byte(meta), &e.metadata); err != nil {
			return nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureNamespace(ctx context.Context, db execer, namespace string) error {
	_, err := db.ExecContext(ctx,
		"INSERT OR IGNORE INTO vector_namespaces (name, created_at) VALUES (?, ?)",
		namespace, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	return nil
}

// encodeVector 小端 float32 序列
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
