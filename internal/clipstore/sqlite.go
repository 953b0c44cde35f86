package clipstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"slipclip/internal/clip"
	"slipclip/internal/melee"
	"slipclip/internal/replay"
	"slipclip/internal/sparse"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// maxQueryArgs stays below SQLite's default bound-parameter limit.
	maxQueryArgs = 500
)

// SQLiteStore keeps clips as rows of one collection database. Each row is
// keyed by a random UUID so concurrent writers never collide.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	parts *partitioner
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenSQLite opens (creating if needed) the collection database at path.
func OpenSQLite(path string, opts Options) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidArgument)
	}
	parts, err := newPartitioner(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path, parts: parts}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

type pendingClip struct {
	clip      clip.Clip
	partition Partition
	stream    []byte
}

// Put inserts the batch in one transaction. Partitions are drawn and streams
// encoded before the transaction so a busy retry replays identical rows.
func (s *SQLiteStore) Put(ctx context.Context, clips []clip.Clip) (WriteReport, error) {
	var (
		encodeFailures WriteReport
		pending        = make([]pendingClip, 0, len(clips))
	)
	for _, c := range clips {
		if c.Stream == nil {
			encodeFailures.fail(c, fmt.Errorf("clip %d has no stream", c.ClipID))
			continue
		}
		blob, err := c.Stream.MarshalBinary()
		if err != nil {
			encodeFailures.fail(c, fmt.Errorf("encode clip stream: %w", err))
			continue
		}
		pending = append(pending, pendingClip{clip: c, partition: s.parts.next(), stream: blob})
	}

	var report WriteReport
	err := retryOnBusy(ctx, func() error {
		report = WriteReport{Failed: encodeFailures.Failed, Failures: append([]Failure(nil), encodeFailures.Failures...)}
		if len(pending) == 0 {
			return nil
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin insert tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO clips
			(id, game_id, clip_id, character_id, name, code, split, frames, istream, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		created := now()
		for _, p := range pending {
			_, err := stmt.ExecContext(ctx,
				uuid.NewString(),
				p.clip.GameID,
				p.clip.ClipID,
				int(p.clip.Character),
				nullableString(p.clip.Name),
				nullableString(p.clip.Code),
				string(p.partition),
				p.clip.Frames(),
				p.stream,
				created,
			)
			if err != nil {
				if isSQLiteBusy(err) || ctx.Err() != nil {
					return err
				}
				report.fail(p.clip, err)
				continue
			}
			report.written(p.partition)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit inserts: %w", err)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

// Keys lists the row ids of matching clips ordered by game and clip id.
func (s *SQLiteStore) Keys(ctx context.Context, f Filter) ([]string, error) {
	conds, err := f.compile(clipFields)
	if err != nil {
		return nil, err
	}
	clause, args := where(conds)
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM clips"+clause+" ORDER BY game_id, clip_id, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan clip id: %w", err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

const clipColumns = "id, game_id, clip_id, character_id, name, code, istream"

func scanClip(scanner interface{ Scan(dest ...any) error }) (string, clip.Clip, error) {
	var (
		id        string
		gameID    string
		clipID    int
		character int
		name      sql.NullString
		code      sql.NullString
		blob      []byte
	)
	if err := scanner.Scan(&id, &gameID, &clipID, &character, &name, &code, &blob); err != nil {
		return "", clip.Clip{}, err
	}
	stream, err := sparse.Decode(blob)
	if err != nil {
		return "", clip.Clip{}, fmt.Errorf("clip %s: %w", id, err)
	}
	ch := melee.Character(character)
	if !ch.Valid() {
		return "", clip.Clip{}, fmt.Errorf("clip %s: invalid character %d", id, character)
	}
	return id, clip.Clip{
		GameID:    gameID,
		ClipID:    clipID,
		Stream:    stream,
		Character: ch,
		Name:      name.String,
		Code:      code.String,
	}, nil
}

// Load reads clips by row id, in key order.
func (s *SQLiteStore) Load(ctx context.Context, keys []string) ([]clip.Clip, error) {
	found := make(map[string]clip.Clip, len(keys))
	for start := 0; start < len(keys); start += maxQueryArgs {
		chunk := keys[start:min(start+maxQueryArgs, len(keys))]
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+clipColumns+" FROM clips WHERE id IN ("+placeholders(len(chunk))+")", args...)
		if err != nil {
			return nil, fmt.Errorf("load clips: %w", err)
		}
		for rows.Next() {
			id, c, err := scanClip(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			found[id] = c
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("load clips: %w", err)
		}
	}

	out := make([]clip.Clip, 0, len(keys))
	for _, k := range keys {
		c, ok := found[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		out = append(out, c)
	}
	return out, nil
}

// Get streams matching clips from a single query.
func (s *SQLiteStore) Get(ctx context.Context, f Filter, limit int) iter.Seq2[clip.Clip, error] {
	return func(yield func(clip.Clip, error) bool) {
		conds, err := f.compile(clipFields)
		if err != nil {
			yield(clip.Clip{}, err)
			return
		}
		clause, args := where(conds)
		query := "SELECT " + clipColumns + " FROM clips" + clause + " ORDER BY game_id, clip_id, id"
		if limit > 0 {
			query += " LIMIT ?"
			args = append(args, limit)
		}
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(clip.Clip{}, fmt.Errorf("query clips: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			_, c, err := scanClip(rows)
			if !yield(c, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(clip.Clip{}, fmt.Errorf("query clips: %w", err))
		}
	}
}

// Count counts matching rows.
func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int, error) {
	conds, err := f.compile(clipFields)
	if err != nil {
		return 0, err
	}
	clause, args := where(conds)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clips"+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}

// Reserve advances the clip_seq counter atomically.
func (s *SQLiteStore) Reserve(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: cannot reserve %d ids", ErrInvalidArgument, n)
	}
	var next int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"UPDATE clip_seq SET next_id = next_id + ? WHERE id = 1 RETURNING next_id", n,
		).Scan(&next)
	})
	if err != nil {
		return 0, fmt.Errorf("reserve clip ids: %w", err)
	}
	return next - n, nil
}

// DiskUsage sums the database file and its WAL companions.
func (s *SQLiteStore) DiskUsage(context.Context) (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// PutRecords exports full-game player records. Re-exporting a game replaces
// its rows.
func (s *SQLiteStore) PutRecords(ctx context.Context, records []replay.PlayerRecord) (WriteReport, error) {
	type pendingRecord struct {
		rec    replay.PlayerRecord
		stream []byte
	}
	var (
		encodeFailures []Failure
		pending        = make([]pendingRecord, 0, len(records))
	)
	for _, rec := range records {
		if rec.Stream == nil {
			encodeFailures = append(encodeFailures, Failure{GameID: rec.GameID, Port: rec.Port, Err: errors.New("record has no stream")})
			continue
		}
		blob, err := rec.Stream.MarshalBinary()
		if err != nil {
			encodeFailures = append(encodeFailures, Failure{GameID: rec.GameID, Port: rec.Port, Err: err})
			continue
		}
		pending = append(pending, pendingRecord{rec: rec, stream: blob})
	}

	var report WriteReport
	err := retryOnBusy(ctx, func() error {
		report = WriteReport{Failed: len(encodeFailures), Failures: append([]Failure(nil), encodeFailures...)}
		if len(pending) == 0 {
			return nil
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin export tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO players
			(id, game_id, port, character_id, name, code, frames, istream, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(game_id, port) DO UPDATE SET
				character_id = excluded.character_id,
				name = excluded.name,
				code = excluded.code,
				frames = excluded.frames,
				istream = excluded.istream,
				created_at = excluded.created_at`)
		if err != nil {
			return fmt.Errorf("prepare export: %w", err)
		}
		defer stmt.Close()

		created := now()
		for _, p := range pending {
			_, err := stmt.ExecContext(ctx,
				uuid.NewString(),
				p.rec.GameID,
				p.rec.Port,
				int(p.rec.Character),
				nullableString(p.rec.Name),
				nullableString(p.rec.Code),
				p.rec.Frames(),
				p.stream,
				created,
			)
			if err != nil {
				if isSQLiteBusy(err) || ctx.Err() != nil {
					return err
				}
				report.Failed++
				report.Failures = append(report.Failures, Failure{GameID: p.rec.GameID, Port: p.rec.Port, Err: err})
				continue
			}
			report.Written++
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit export: %w", err)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

// Records reads exported player records matching f, ordered by game and port.
// Player filters accept game_id, port, character, name and code.
func (s *SQLiteStore) Records(ctx context.Context, f Filter) ([]replay.PlayerRecord, error) {
	conds, err := f.compile(playerFields)
	if err != nil {
		return nil, err
	}
	clause, args := where(conds)
	rows, err := s.db.QueryContext(ctx,
		"SELECT game_id, port, character_id, name, code, istream FROM players"+clause+" ORDER BY game_id, port", args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var out []replay.PlayerRecord
	for rows.Next() {
		var (
			rec       replay.PlayerRecord
			character int
			name      sql.NullString
			code      sql.NullString
			blob      []byte
		)
		if err := rows.Scan(&rec.GameID, &rec.Port, &character, &name, &code, &blob); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		rec.Character = melee.Character(character)
		rec.Name = name.String
		rec.Code = code.String
		if rec.Stream, err = sparse.Decode(blob); err != nil {
			return nil, fmt.Errorf("player %s port %d: %w", rec.GameID, rec.Port, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
