package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/waterindex-go/internal/wkb"
)

const (
	cellsTable = "water_cells"
	tilesTable = "water_tiles"

	postgisBatchSize = 50000
)

// PostGISSink loads features into the water_cells and water_tiles tables.
// Existing tables are replaced.
type PostGISSink struct {
	ctx    context.Context
	pool   *pgxpool.Pool
	schema string
	srid   int
	enc    *wkb.Encoder
	log    *zap.Logger

	cells  [][]any
	tiles  [][]any
	loaded int64
}

// NewPostGISSink connects to the database and creates the tables.
func NewPostGISSink(ctx context.Context, connString, schema string, srid int, log *zap.Logger) (*PostGISSink, error) {
	if log == nil {
		log = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	s := &PostGISSink{
		ctx:    ctx,
		pool:   pool,
		schema: schema,
		srid:   srid,
		enc:    wkb.NewEncoder(srid),
		log:    log,
	}
	if err := s.createTables(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostGISSink) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *PostGISSink) createTables() error {
	if _, err := s.pool.Exec(s.ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if s.schema != "public" {
		if _, err := s.pool.Exec(s.ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{s.schema}.Sanitize())); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	statements := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table(cellsTable)),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table(tilesTable)),
		fmt.Sprintf(`CREATE UNLOGGED TABLE %s (
			level SMALLINT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			state TEXT NOT NULL,
			geom GEOMETRY(Polygon, %d)
		)`, s.table(cellsTable), s.srid),
		fmt.Sprintf(`CREATE UNLOGGED TABLE %s (
			level SMALLINT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			tile INTEGER NOT NULL,
			type TEXT NOT NULL,
			coast_edges INTEGER NOT NULL,
			geom GEOMETRY(Polygon, %d)
		)`, s.table(tilesTable), s.srid),
	}
	for _, sql := range statements {
		if _, err := s.pool.Exec(s.ctx, sql); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

func (s *PostGISSink) Write(f *Feature) error {
	// the encoder reuses its buffer
	geom := append([]byte(nil), s.enc.EncodePolygon(orb.Polygon{f.Geometry})...)

	switch f.Kind {
	case KindCell:
		s.cells = append(s.cells, []any{int16(f.Level), int32(f.X), int32(f.Y), f.State, geom})
		if len(s.cells) >= postgisBatchSize {
			return s.flushCells()
		}
	case KindTile:
		s.tiles = append(s.tiles, []any{int16(f.Level), int32(f.X), int32(f.Y), int32(f.Tile), f.State, int32(f.CoastEdges), geom})
		if len(s.tiles) >= postgisBatchSize {
			return s.flushTiles()
		}
	}
	return nil
}

func (s *PostGISSink) flushCells() error {
	err := s.copy(cellsTable, []string{"level", "x", "y", "state"}, "level SMALLINT, x INTEGER, y INTEGER, state TEXT", s.cells)
	s.cells = s.cells[:0]
	return err
}

func (s *PostGISSink) flushTiles() error {
	err := s.copy(tilesTable, []string{"level", "x", "y", "tile", "type", "coast_edges"},
		"level SMALLINT, x INTEGER, y INTEGER, tile INTEGER, type TEXT, coast_edges INTEGER", s.tiles)
	s.tiles = s.tiles[:0]
	return err
}

// copy loads rows through a temporary table since COPY cannot convert EWKB
// into geometry.
func (s *PostGISSink) copy(table string, columns []string, columnDefs string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(s.ctx)

	tempTable := "tmp_" + table
	if _, err := tx.Exec(s.ctx, fmt.Sprintf("CREATE TEMP TABLE %s (%s, geom_wkb BYTEA) ON COMMIT DROP", tempTable, columnDefs)); err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	copyColumns := append(append([]string(nil), columns...), "geom_wkb")
	n, err := tx.CopyFrom(s.ctx, pgx.Identifier{tempTable}, copyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("COPY failed: %w", err)
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	list := strings.Join(quoted, ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s, geom) SELECT %s, ST_GeomFromEWKB(geom_wkb) FROM %s",
		s.table(table), list, list, tempTable)
	if _, err := tx.Exec(s.ctx, insertSQL); err != nil {
		return fmt.Errorf("failed to insert from temp table: %w", err)
	}

	if err := tx.Commit(s.ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.loaded += n
	return nil
}

// Loaded returns the number of rows copied so far.
func (s *PostGISSink) Loaded() int64 {
	return s.loaded
}

// Close loads pending rows, indexes the tables and disconnects.
func (s *PostGISSink) Close() error {
	defer s.pool.Close()

	if err := s.flushCells(); err != nil {
		return err
	}
	if err := s.flushTiles(); err != nil {
		return err
	}

	for _, table := range []string{cellsTable, tilesTable} {
		statements := []string{
			fmt.Sprintf("ALTER TABLE %s SET LOGGED", s.table(table)),
			fmt.Sprintf("CREATE INDEX ON %s USING GIST (geom)", s.table(table)),
			fmt.Sprintf("CREATE INDEX ON %s (level, x, y)", s.table(table)),
			fmt.Sprintf("ANALYZE %s", s.table(table)),
		}
		for _, sql := range statements {
			if _, err := s.pool.Exec(s.ctx, sql); err != nil {
				return fmt.Errorf("failed to finish table %s: %w", table, err)
			}
		}
	}

	s.log.Info("Tables loaded", zap.Int64("rows", s.loaded))
	return nil
}
