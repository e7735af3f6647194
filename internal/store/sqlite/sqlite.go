// Package sqlite is the single-box Store backend: members and contributions
// in a local SQLite file, change notification done in-process by pushing a
// fresh snapshot after every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ipon/internal/core"
	"ipon/internal/store"
)

type Store struct {
	db    *sql.DB
	bcast *store.Broadcaster
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:    db,
		bcast: store.NewBroadcaster(),
		now:   time.Now,
	}, nil
}

func (s *Store) Close() error {
	s.bcast.CloseAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context) (store.Subscription, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	return s.bcast.Subscribe(snap), nil
}

func (s *Store) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM members ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) AddMember(ctx context.Context, name string) (core.Member, error) {
	m := core.Member{ID: uuid.NewString(), Name: name}
	_, err := s.db.ExecContext(ctx, `INSERT INTO members (id, name) VALUES (?, ?)`, m.ID, m.Name)
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}

	slog.InfoContext(ctx, "Member saved", "id", m.ID, "name", m.Name)
	s.publish(ctx)
	return m, nil
}

func (s *Store) RenameMember(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE members SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.publish(ctx)
	return nil
}

func (s *Store) DeleteMember(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.publish(ctx)
	return nil
}

func (s *Store) ListContributions(ctx context.Context) ([]core.Contribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_name, amount_centavos, display_date, effective_at, created_at, proof_url
		FROM contributions
		ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	var contribs []core.Contribution
	for rows.Next() {
		var (
			c           core.Contribution
			centavos    int64
			effectiveAt sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&c.ID, &c.MemberName, &centavos, &c.Date, &effectiveAt, &createdAt, &c.ProofOfPayment); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.Amount = core.Money{Centavos: centavos}
		// Stored timestamps are normalized on read; a record whose effective
		// date does not parse keeps a zero Timestamp and is excluded from
		// month bucketing downstream rather than failing the whole list.
		if effectiveAt.Valid {
			c.Timestamp = parseStoredTime(effectiveAt.String)
		}
		c.CreatedAt = parseStoredTime(createdAt)
		contribs = append(contribs, c)
	}
	return contribs, rows.Err()
}

func (s *Store) AddContribution(ctx context.Context, c core.Contribution) (core.Contribution, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = s.now().UTC()
	if c.Date == "" {
		c.Date = c.DisplayDate()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contributions (id, member_name, amount_centavos, display_date, effective_at, created_at, proof_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.MemberName, c.Amount.Centavos, c.Date,
		c.Timestamp.UTC().Format(time.RFC3339Nano),
		c.CreatedAt.Format(time.RFC3339Nano),
		c.ProofOfPayment,
	)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("insert contribution: %w", err)
	}

	slog.InfoContext(ctx, "Contribution saved",
		"id", c.ID,
		"member", c.MemberName,
		"amount_centavos", c.Amount.Centavos)
	s.publish(ctx)
	return c, nil
}

func (s *Store) UpdateContribution(ctx context.Context, id string, upd store.ContributionUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contributions
		    SET amount_centavos = ?,
		        proof_url = CASE WHEN ? = '' THEN proof_url ELSE ? END
		  WHERE id = ?`,
		upd.Amount.Centavos, upd.ProofOfPayment, upd.ProofOfPayment, id)
	if err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.publish(ctx)
	return nil
}

func (s *Store) DeleteContribution(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contribution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.publish(ctx)
	return nil
}

func (s *Store) snapshot(ctx context.Context) (store.Snapshot, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	contribs, err := s.ListContributions(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{Members: members, Contributions: contribs}, nil
}

// publish pushes a fresh snapshot to subscribers after a mutation. A snapshot
// read failure only costs the notification; the mutation itself already
// succeeded, and the next successful mutation re-synchronizes subscribers.
func (s *Store) publish(ctx context.Context) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot after mutation failed", "error", err)
		return
	}
	s.bcast.Publish(snap)
}

func parseStoredTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// IsNotFound reports whether err is the store's not-found sentinel. Kept here
// so callers do not need to import database/sql for sql.ErrNoRows checks.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
