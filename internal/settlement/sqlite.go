package settlement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SqliteRepository persists settlements in a SQLite database, one row per
// aggregate with JSON-marshaled sub-structures. Each Save runs in its own
// transaction so a settlement either persists whole or not at all.
type SqliteRepository struct {
	conn *sqlx.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
func OpenSqlite(path string) (*SqliteRepository, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	repo := &SqliteRepository{conn: conn}
	if err := repo.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return repo, nil
}

// Close closes the database connection.
func (r *SqliteRepository) Close() error {
	return r.conn.Close()
}

func (r *SqliteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settlements (
		id TEXT PRIMARY KEY,
		player TEXT NOT NULL,
		tile TEXT NOT NULL,
		resilience INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		storage_json TEXT NOT NULL,
		population_json TEXT NOT NULL,
		structures_json TEXT NOT NULL,
		queue_json TEXT NOT NULL,
		disaster_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS disaster_archive (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		settlement_id TEXT NOT NULL,
		disaster_id TEXT NOT NULL,
		type TEXT NOT NULL,
		severity INTEGER NOT NULL,
		resolved_at TEXT NOT NULL,
		event_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archive_settlement ON disaster_archive(settlement_id);
	`
	_, err := r.conn.Exec(schema)
	return err
}

type settlementRow struct {
	Id             string `db:"id"`
	Player         string `db:"player"`
	Tile           string `db:"tile"`
	Resilience     int    `db:"resilience"`
	CreatedAt      string `db:"created_at"`
	StorageJSON    string `db:"storage_json"`
	PopulationJSON string `db:"population_json"`
	StructuresJSON string `db:"structures_json"`
	QueueJSON      string `db:"queue_json"`
	DisasterJSON   string `db:"disaster_json"`
}

func (r *SqliteRepository) Get(ctx context.Context, id string) (*Settlement, error) {
	var row settlementRow
	err := r.conn.GetContext(ctx, &row, "SELECT * FROM settlements WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select settlement %s: %w", id, err)
	}

	s, err := rowToSettlement(&row)
	if err != nil {
		return nil, fmt.Errorf("settlement %s: %w", id, err)
	}
	return s, nil
}

// List returns all valid settlements. Malformed rows are logged with their
// id and skipped so one bad aggregate cannot halt a tick.
func (r *SqliteRepository) List(ctx context.Context) ([]*Settlement, error) {
	var rows []settlementRow
	err := r.conn.SelectContext(ctx, &rows, "SELECT * FROM settlements ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select settlements: %w", err)
	}

	out := make([]*Settlement, 0, len(rows))
	for i := range rows {
		s, err := rowToSettlement(&rows[i])
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed settlement", "settlement", rows[i].Id, "error", err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SqliteRepository) Save(ctx context.Context, s *Settlement) error {
	row, err := settlementToRow(s)
	if err != nil {
		return fmt.Errorf("encode settlement %s: %w", s.Id, err)
	}

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO settlements
		(id, player, tile, resilience, created_at,
		 storage_json, population_json, structures_json, queue_json, disaster_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Id, row.Player, row.Tile, row.Resilience, row.CreatedAt,
		row.StorageJSON, row.PopulationJSON, row.StructuresJSON, row.QueueJSON, row.DisasterJSON,
	)
	if err != nil {
		return fmt.Errorf("insert settlement %s: %w", s.Id, err)
	}

	return tx.Commit()
}

func (r *SqliteRepository) ArchiveDisaster(ctx context.Context, settlementId string, ev *DisasterEvent) error {
	evJSON, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode disaster %s: %w", ev.Id, err)
	}

	_, err = r.conn.ExecContext(ctx, `INSERT INTO disaster_archive
		(settlement_id, disaster_id, type, severity, resolved_at, event_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		settlementId, ev.Id, ev.Type, ev.Severity,
		ev.ResolvesAt.UTC().Format(time.RFC3339Nano), string(evJSON),
	)
	if err != nil {
		return fmt.Errorf("insert archive for %s: %w", settlementId, err)
	}
	return nil
}

func settlementToRow(s *Settlement) (*settlementRow, error) {
	storageJSON, err := json.Marshal(s.Storage)
	if err != nil {
		return nil, fmt.Errorf("marshal storage: %w", err)
	}
	popJSON, err := json.Marshal(s.Population)
	if err != nil {
		return nil, fmt.Errorf("marshal population: %w", err)
	}
	structJSON, err := json.Marshal(s.Structures)
	if err != nil {
		return nil, fmt.Errorf("marshal structures: %w", err)
	}
	queueJSON, err := json.Marshal(s.Queue)
	if err != nil {
		return nil, fmt.Errorf("marshal queue: %w", err)
	}
	disasterJSON, err := json.Marshal(s.Disaster)
	if err != nil {
		return nil, fmt.Errorf("marshal disaster: %w", err)
	}

	return &settlementRow{
		Id:             s.Id,
		Player:         s.Player,
		Tile:           s.Tile,
		Resilience:     s.Resilience,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339Nano),
		StorageJSON:    string(storageJSON),
		PopulationJSON: string(popJSON),
		StructuresJSON: string(structJSON),
		QueueJSON:      string(queueJSON),
		DisasterJSON:   string(disasterJSON),
	}, nil
}

func rowToSettlement(row *settlementRow) (*Settlement, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	s := &Settlement{
		Id:         row.Id,
		Player:     row.Player,
		Tile:       row.Tile,
		Resilience: row.Resilience,
		CreatedAt:  createdAt,
	}

	if err := json.Unmarshal([]byte(row.StorageJSON), &s.Storage); err != nil {
		return nil, fmt.Errorf("unmarshal storage: %w", err)
	}
	if err := json.Unmarshal([]byte(row.PopulationJSON), &s.Population); err != nil {
		return nil, fmt.Errorf("unmarshal population: %w", err)
	}
	if err := json.Unmarshal([]byte(row.StructuresJSON), &s.Structures); err != nil {
		return nil, fmt.Errorf("unmarshal structures: %w", err)
	}
	if err := json.Unmarshal([]byte(row.QueueJSON), &s.Queue); err != nil {
		return nil, fmt.Errorf("unmarshal queue: %w", err)
	}
	if err := json.Unmarshal([]byte(row.DisasterJSON), &s.Disaster); err != nil {
		return nil, fmt.Errorf("unmarshal disaster: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return s, nil
}
