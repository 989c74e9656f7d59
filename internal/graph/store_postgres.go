package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matijazezelj/wayfind/pkg/models"
)

var _ Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS nodes (
    id         TEXT PRIMARY KEY,
    label      TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL,
    x          DOUBLE PRECISION NOT NULL,
    y          DOUBLE PRECISION NOT NULL,
    accessible BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS edges (
    key        TEXT PRIMARY KEY,
    from_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    to_id      TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    type       TEXT NOT NULL,
    accessible BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id);

CREATE TABLE IF NOT EXISTS hazards (
    id         BIGSERIAL PRIMARY KEY,
    from_id    TEXT NOT NULL,
    to_id      TEXT NOT NULL,
    reason     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS imports (
    id          BIGSERIAL PRIMARY KEY,
    source      TEXT NOT NULL,
    source_path TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    nodes_found INTEGER DEFAULT 0,
    edges_found INTEGER DEFAULT 0,
    status      TEXT DEFAULT 'running'
);
`

const (
	pgUpsertNode = `
		INSERT INTO nodes (id, label, type, x, y, accessible)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			type = EXCLUDED.type,
			x = EXCLUDED.x,
			y = EXCLUDED.y,
			accessible = EXCLUDED.accessible
	`
	pgUpsertEdge = `
		INSERT INTO edges (key, from_id, to_id, type, accessible)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			from_id = EXCLUDED.from_id,
			to_id = EXCLUDED.to_id,
			type = EXCLUDED.type,
			accessible = EXCLUDED.accessible
	`
)

// PostgresStore implements Store on PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Init creates the schema if it doesn't exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresSchema)
	return err
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ReplaceBuilding swaps the stored model in a single transaction.
func (s *PostgresStore) ReplaceBuilding(ctx context.Context, nodes []models.Node, edges []models.Edge) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `TRUNCATE edges, nodes`); err != nil {
		return fmt.Errorf("clearing building: %w", err)
	}

	batch := &pgx.Batch{}
	for _, n := range nodes {
		batch.Queue(pgUpsertNode, n.ID, n.Label, string(n.Type), n.X, n.Y, n.Accessible)
	}
	for _, e := range edges {
		batch.Queue(pgUpsertEdge, e.Key(), e.From, e.To, string(e.Type), e.Accessible)
	}
	batch.Queue(orphanHazards)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting building: %w", err)
	}
	return tx.Commit(ctx)
}

// UpsertNode inserts or updates a node.
func (s *PostgresStore) UpsertNode(ctx context.Context, node models.Node) error {
	_, err := s.pool.Exec(ctx, pgUpsertNode, node.ID, node.Label, string(node.Type), node.X, node.Y, node.Accessible)
	return err
}

// UpsertEdge inserts or updates an edge.
func (s *PostgresStore) UpsertEdge(ctx context.Context, edge models.Edge) error {
	_, err := s.pool.Exec(ctx, pgUpsertEdge, edge.Key(), edge.From, edge.To, string(edge.Type), edge.Accessible)
	return err
}

// GetNode retrieves a node by ID.
func (s *PostgresStore) GetNode(ctx context.Context, id string) (*models.Node, error) {
	n, err := scanNode(s.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// ListNodes returns nodes matching the given filter.
func (s *PostgresStore) ListNodes(ctx context.Context, filter NodeFilter) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE TRUE`
	var args []any
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.Accessible != nil {
		args = append(args, *filter.Accessible)
		query += fmt.Sprintf(` AND accessible = $%d`, len(args))
	}
	query += ` ORDER BY id`
	return s.queryNodes(ctx, query, args...)
}

func (s *PostgresStore) queryNodes(ctx context.Context, query string, args ...any) ([]models.Node, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
func (s *PostgresStore) ListEdges(ctx context.Context, filter EdgeFilter) ([]models.Edge, error) {
	query := `SELECT ` + edgeColumns + ` FROM edges WHERE TRUE`
	var args []any
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.NodeID != "" {
		args = append(args, filter.NodeID)
		query += fmt.Sprintf(` AND (from_id = $%d OR to_id = $%d)`, len(args), len(args))
	}
	if filter.Accessible != nil {
		args = append(args, *filter.Accessible)
		query += fmt.Sprintf(` AND accessible = $%d`, len(args))
	}
	query += ` ORDER BY key`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// GetNeighbors returns all nodes connected to the given node.
func (s *PostgresStore) GetNeighbors(ctx context.Context, nodeID string) ([]models.Node, error) {
	return s.queryNodes(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes
		WHERE id IN (
			SELECT to_id FROM edges WHERE from_id = $1
			UNION
			SELECT from_id FROM edges WHERE to_id = $1
		)
		ORDER BY id
	`, nodeID)
}

// NodeCount returns the total number of nodes.
func (s *PostgresStore) NodeCount(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count)
	return count, err
}

// EdgeCount returns the total number of edges.
func (s *PostgresStore) EdgeCount(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM edges`).Scan(&count)
	return count, err
}

// NodeCountByType returns node counts grouped by type.
func (s *PostgresStore) NodeCountByType(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, `SELECT type, COUNT(*) FROM nodes GROUP BY type ORDER BY type`)
}

// EdgeCountByType returns edge counts grouped by type.
func (s *PostgresStore) EdgeCountByType(ctx context.Context) (map[string]int, error) {
	return s.countBy(ctx, `SELECT type, COUNT(*) FROM edges GROUP BY type ORDER BY type`)
}

func (s *PostgresStore) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
func (s *PostgresStore) AddHazard(ctx context.Context, h models.Hazard) (int64, error) {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO hazards (from_id, to_id, reason, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, h.From, h.To, h.Reason, h.CreatedAt.UTC(), h.ExpiresAt).Scan(&id)
	return id, err
}

// ListHazards returns hazards in force at activeAt, or all when zero.
func (s *PostgresStore) ListHazards(ctx context.Context, activeAt time.Time) ([]models.Hazard, error) {
	if activeAt.IsZero() {
		return s.queryHazards(ctx, `SELECT `+hazardColumns+` FROM hazards ORDER BY id`)
	}
	return s.queryHazards(ctx, `
		SELECT `+hazardColumns+` FROM hazards
		WHERE expires_at IS NULL OR expires_at > $1
		ORDER BY id
	`, activeAt)
}

func (s *PostgresStore) queryHazards(ctx context.Context, query string, args ...any) ([]models.Hazard, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hazards []models.Hazard
	for rows.Next() {
		var h models.Hazard
		if err := rows.Scan(&h.ID, &h.From, &h.To, &h.Reason, &h.CreatedAt, &h.ExpiresAt); err != nil {
			return nil, err
		}
		hazards = append(hazards, h)
	}
	return hazards, rows.Err()
}

// DeleteHazard removes a hazard by ID.
func (s *PostgresStore) DeleteHazard(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hazards WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClearHazards removes all hazards.
func (s *PostgresStore) ClearHazards(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hazards`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpiredHazards removes and returns hazards expired at now.
func (s *PostgresStore) DeleteExpiredHazards(ctx context.Context, now time.Time) ([]models.Hazard, error) {
	return s.queryHazards(ctx, `
		DELETE FROM hazards
		WHERE expires_at IS NOT NULL AND expires_at <= $1
		RETURNING `+hazardColumns, now)
}

// RecordImport inserts a new import record and returns its ID.
func (s *PostgresStore) RecordImport(ctx context.Context, imp models.Import) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO imports (source, source_path, started_at, status)
		VALUES ($1, $2, $3, $4) RETURNING id
	`, imp.Source, imp.SourcePath, imp.StartedAt.UTC(), imp.Status).Scan(&id)
	return id, err
}

// UpdateImport updates an import record with its final status and counts.
func (s *PostgresStore) UpdateImport(ctx context.Context, id int64, status string, nodesFound, edgesFound int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE imports SET status = $1, nodes_found = $2, edges_found = $3, finished_at = $4 WHERE id = $5
	`, status, nodesFound, edgesFound, time.Now().UTC(), id)
	return err
}

// ListImports returns the most recent import records, up to limit.
func (s *PostgresStore) ListImports(ctx context.Context, limit int) ([]models.Import, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, source_path, started_at, finished_at, nodes_found, edges_found, status
		FROM imports ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []models.Import
	for rows.Next() {
		var im models.Import
		if err := rows.Scan(&im.ID, &im.Source, &im.SourcePath, &im.StartedAt, &im.FinishedAt, &im.NodesFound, &im.EdgesFound, &im.Status); err != nil {
			return nil, err
		}
		imports = append(imports, im)
	}
	return imports, rows.Err()
}
