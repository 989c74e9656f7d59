package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matijazezelj/wayfind/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    id         TEXT PRIMARY KEY,
    label      TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL,
    x          REAL NOT NULL,
    y          REAL NOT NULL,
    accessible INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS edges (
    key        TEXT PRIMARY KEY,
    from_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    to_id      TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    accessible INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type);

CREATE TABLE IF NOT EXISTS hazards (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    from_id    TEXT NOT NULL,
    to_id      TEXT NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    expires_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_hazards_expires_at ON hazards(expires_at) WHERE expires_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS imports (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source      TEXT NOT NULL,
    source_path TEXT NOT NULL,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME,
    nodes_found INTEGER DEFAULT 0,
    edges_found INTEGER DEFAULT 0,
    status      TEXT DEFAULT 'running'
);
`

const (
	nodeColumns   = `id, label, type, x, y, accessible`
	edgeColumns   = `from_id, to_id, type, accessible`
	hazardColumns = `id, from_id, to_id, reason, created_at, expires_at`
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Init creates the database schema if it doesn't exist.
func (s *SQLiteStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Backup writes a consistent copy of the database to dest.
func (s *SQLiteStore) Backup(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup target %s already exists", dest)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

const (
	sqliteUpsertNode = `
		INSERT INTO nodes (id, label, type, x, y, accessible)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			type = excluded.type,
			x = excluded.x,
			y = excluded.y,
			accessible = excluded.accessible
	`
	sqliteUpsertEdge = `
		INSERT INTO edges (key, from_id, to_id, type, accessible)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			from_id = excluded.from_id,
			to_id = excluded.to_id,
			type = excluded.type,
			accessible = excluded.accessible
	`
	// Drops hazards whose connection is no longer part of the model.
	orphanHazards = `
		DELETE FROM hazards WHERE NOT EXISTS (
			SELECT 1 FROM edges e
			WHERE (e.from_id = hazards.from_id AND e.to_id = hazards.to_id)
			   OR (e.from_id = hazards.to_id AND e.to_id = hazards.from_id)
		)
	`
)

// ReplaceBuilding swaps the stored model in a single transaction.
func (s *SQLiteStore) ReplaceBuilding(ctx context.Context, nodes []models.Node, edges []models.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{`DELETE FROM edges`, `DELETE FROM nodes`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing building: %w", err)
		}
	}
	for _, n := range nodes {
		if _, err := tx.ExecContext(ctx, sqliteUpsertNode, n.ID, n.Label, string(n.Type), n.X, n.Y, n.Accessible); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx, sqliteUpsertEdge, e.Key(), e.From, e.To, string(e.Type), e.Accessible); err != nil {
			return fmt.Errorf("inserting edge %s: %w", e.Key(), err)
		}
	}
	if _, err := tx.ExecContext(ctx, orphanHazards); err != nil {
		return fmt.Errorf("dropping orphaned hazards: %w", err)
	}
	return tx.Commit()
}

// UpsertNode inserts or updates a node in the store.
func (s *SQLiteStore) UpsertNode(ctx context.Context, node models.Node) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertNode, node.ID, node.Label, string(node.Type), node.X, node.Y, node.Accessible)
	return err
}

// UpsertEdge inserts or updates an edge in the store.
func (s *SQLiteStore) UpsertEdge(ctx context.Context, edge models.Edge) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertEdge, edge.Key(), edge.From, edge.To, string(edge.Type), edge.Accessible)
	return err
}

// GetNode retrieves a single node by ID.
func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanNode(row rowScanner) (*models.Node, error) {
	var n models.Node
	var typ string
	err := row.Scan(&n.ID, &n.Label, &typ, &n.X, &n.Y, &n.Accessible)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	n.Type = models.NodeType(typ)
	return &n, nil
}

// ListNodes returns nodes matching the given filter.
func (s *SQLiteStore) ListNodes(ctx context.Context, filter NodeFilter) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Accessible != nil {
		query += ` AND accessible = ?`
		args = append(args, *filter.Accessible)
	}

	query += ` ORDER BY id`
	return s.queryNodes(ctx, query, args...)
}

func (s *SQLiteStore) queryNodes(ctx context.Context, query string, args ...any) ([]models.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	var nodes []models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

// ListEdges returns edges matching the given filter.
func (s *SQLiteStore) ListEdges(ctx context.Context, filter EdgeFilter) ([]models.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM edges WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.NodeID != "" {
		query += ` AND (from_id = ? OR to_id = ?)`
		args = append(args, filter.NodeID, filter.NodeID)
	}
	if filter.Accessible != nil {
		query += ` AND accessible = ?`
		args = append(args, *filter.Accessible)
	}

	query += ` ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	var edges []models.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *e)
	}
	return edges, rows.Err()
}

func scanEdge(row rowScanner) (*models.Edge, error) {
	var e models.Edge
	var typ string
	if err := row.Scan(&e.From, &e.To, &typ, &e.Accessible); err != nil {
		return nil, err
	}
	e.Type = models.EdgeType(typ)
	return &e, nil
}

// GetNeighbors returns all nodes connected to the given node.
func (s *SQLiteStore) GetNeighbors(ctx context.Context, nodeID string) ([]models.Node, error) {
	return s.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE id IN (
			SELECT to_id FROM edges WHERE from_id = ?
			UNION
			SELECT from_id FROM edges WHERE to_id = ?
		)
		ORDER BY id
	`, nodeID, nodeID)
}

// NodeCount returns the total number of nodes.
func (s *SQLiteStore) NodeCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count)
	return count, err
}

// EdgeCount returns the total number of edges.
func (s *SQLiteStore) EdgeCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&count)
	return count, err
}

// NodeCountByType returns node counts grouped by type.
func (s *SQLiteStore) NodeCountByType(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, `SELECT type, COUNT(*) FROM nodes GROUP BY type ORDER BY type`)
}

// EdgeCountByType returns edge counts grouped by type.
func (s *SQLiteStore) EdgeCountByType(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, `SELECT type, COUNT(*) FROM edges GROUP BY type ORDER BY type`)
}

func (s *SQLiteStore) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, err
		}
		counts[t] = c
	}
	return counts, rows.Err()
}

// AddHazard inserts a hazard and returns its ID.
func (s *SQLiteStore) AddHazard(ctx context.Context, h models.Hazard) (int64, error) {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO hazards (from_id, to_id, reason, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
	`, h.From, h.To, h.Reason, formatTime(h.CreatedAt), formatTimePtr(h.ExpiresAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListHazards returns hazards in force at activeAt, or all of them when
// activeAt is zero.
func (s *SQLiteStore) ListHazards(ctx context.Context, activeAt time.Time) ([]models.Hazard, error) {
	query := `SELECT ` + hazardColumns + ` FROM hazards`
	var args []any
	if !activeAt.IsZero() {
		query += ` WHERE expires_at IS NULL OR expires_at > ?`
		args = append(args, formatTime(activeAt))
	}
	query += ` ORDER BY id`
	return s.queryHazards(ctx, query, args...)
}

func (s *SQLiteStore) queryHazards(ctx context.Context, query string, args ...any) ([]models.Hazard, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	var hazards []models.Hazard
	for rows.Next() {
		var h models.Hazard
		var createdAt string
		var expiresAt sql.NullString
		if err := rows.Scan(&h.ID, &h.From, &h.To, &h.Reason, &createdAt, &expiresAt); err != nil {
			return nil, err
		}
		h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if expiresAt.Valid {
			t, err := time.Parse(time.RFC3339, expiresAt.String)
			if err == nil {
				h.ExpiresAt = &t
			}
		}
		hazards = append(hazards, h)
	}
	return hazards, rows.Err()
}

// DeleteHazard removes a hazard by ID.
func (s *SQLiteStore) DeleteHazard(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hazards WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearHazards removes all hazards.
func (s *SQLiteStore) ClearHazards(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hazards`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteExpiredHazards removes and returns hazards expired at now.
func (s *SQLiteStore) DeleteExpiredHazards(ctx context.Context, now time.Time) ([]models.Hazard, error) {
	cutoff := formatTime(now)
	expired, err := s.queryHazards(ctx, `SELECT `+hazardColumns+` FROM hazards WHERE expires_at IS NOT NULL AND expires_at <= ? ORDER BY id`, cutoff)
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM hazards WHERE expires_at IS NOT NULL AND expires_at <= ?`, cutoff); err != nil {
		return nil, err
	}
	return expired, nil
}

// RecordImport inserts a new import record and returns its ID.
func (s *SQLiteStore) RecordImport(ctx context.Context, imp models.Import) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO imports (source, source_path, started_at, status) VALUES (?, ?, ?, ?)
	`, imp.Source, imp.SourcePath, formatTime(imp.StartedAt), imp.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateImport updates an import record with its final status and counts.
func (s *SQLiteStore) UpdateImport(ctx context.Context, id int64, status string, nodesFound, edgesFound int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE imports SET status = ?, nodes_found = ?, edges_found = ?, finished_at = ? WHERE id = ?
	`, status, nodesFound, edgesFound, formatTime(time.Now()), id)
	return err
}

// ListImports returns the most recent import records, up to limit.
func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]models.Import, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, source_path, started_at, finished_at, nodes_found, edges_found, status
		FROM imports ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // best-effort cleanup

	var imports []models.Import
	for rows.Next() {
		var im models.Import
		var finishedAt sql.NullString
		var startedAt string
		if err := rows.Scan(&im.ID, &im.Source, &im.SourcePath, &startedAt, &finishedAt, &im.NodesFound, &im.EdgesFound, &im.Status); err != nil {
			return nil, err
		}
		im.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if finishedAt.Valid {
			t, _ := time.Parse(time.RFC3339, finishedAt.String)
			im.FinishedAt = &t
		}
		imports = append(imports, im)
	}
	return imports, rows.Err()
}

// formatTime renders t in UTC so stored values compare lexicographically.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
