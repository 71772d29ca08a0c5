package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// Storage is a SQL implementation of the storage interface backed by
// Postgres or SQLite. Compare-and-set operations are conditional UPDATEs
// whose WHERE clause carries the precondition.
type Storage struct {
	db      *sql.DB
	dialect Dialect
}

// New opens the database, verifies the connection and applies migrations
func New(ctx context.Context, cfg Config) (*Storage, error) {
	driver, err := cfg.Dialect.driverName()
	if err != nil {
		return nil, err
	}

	if err := migrateDSN(ctx, driver, cfg); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Dialect == DialectSQLite {
		// SQLite allows a single writer, serialize through one connection
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	return NewWithDB(db, cfg.Dialect), nil
}

// migrateDSN applies migrations over a dedicated connection pool, closed
// once they are done
func migrateDSN(ctx context.Context, driver string, cfg Config) error {
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return RunMigrations(db, cfg.Dialect)
}

// NewWithDB wraps an already migrated database
func NewWithDB(db *sql.DB, dialect Dialect) *Storage {
	return &Storage{db: db, dialect: dialect}
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) exec(ctx context.Context, q execer, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Account operations

const accountColumns = `id, username, display_name, kind, password_hash, created_at`

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	n, err := s.exec(ctx, s.db, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING`,
		string(account.ID), strings.ToLower(account.Username), account.DisplayName,
		string(account.Kind), account.PasswordHash, account.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if n == 0 {
		return model.ErrUsernameTaken
	}
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`), string(id))
	return scanAccount(row)
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+accountColumns+` FROM accounts WHERE username = ?`), strings.ToLower(username))
	return scanAccount(row)
}

func scanAccount(row scanner) (*model.Account, error) {
	var (
		a         model.Account
		id, kind  string
		createdAt int64
	)
	if err := row.Scan(&id, &a.Username, &a.DisplayName, &kind, &a.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	a.ID = model.AccountID(id)
	a.Kind = model.ActorKind(kind)
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

// Access code operations

const accessCodeColumns = `code, owner_id, created_at, expires_at, consumed_at, consumed_by, invalidated_at`

func (s *Storage) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Take the owner row lock first so concurrent issues for one owner serialize
		if _, err := s.exec(ctx, tx, `
			INSERT INTO access_code_owners (owner_id, current_code) VALUES (?, ?)
			ON CONFLICT (owner_id) DO UPDATE SET current_code = excluded.current_code`,
			string(code.OwnerID), code.Code,
		); err != nil {
			return fmt.Errorf("upsert code owner: %w", err)
		}

		at := code.CreatedAt.UnixMilli()
		if _, err := s.exec(ctx, tx, `
			UPDATE access_codes SET expires_at = ?, invalidated_at = ?
			WHERE owner_id = ? AND consumed_at IS NULL AND expires_at > ?`,
			at, at, string(code.OwnerID), at,
		); err != nil {
			return fmt.Errorf("invalidate previous codes: %w", err)
		}

		n, err := s.exec(ctx, tx, `
			INSERT INTO access_codes (code, owner_id, created_at, expires_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (code) DO NOTHING`,
			code.Code, string(code.OwnerID), at, code.ExpiresAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert access code: %w", err)
		}
		if n == 0 {
			return model.ErrCodeTaken
		}
		return nil
	})
}

func (s *Storage) GetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	return s.getAccessCode(ctx, s.db, code)
}

func (s *Storage) getAccessCode(ctx context.Context, q execer, code string) (*model.AccessCode, error) {
	row := q.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+accessCodeColumns+` FROM access_codes WHERE code = ?`), code)
	return scanAccessCode(row)
}

func (s *Storage) GetOutstandingAccessCode(ctx context.Context, owner model.AccountID, now time.Time) (*model.AccessCode, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT `+accessCodeColumns+` FROM access_codes
		WHERE owner_id = ? AND consumed_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`), string(owner), now.UnixMilli())
	return scanAccessCode(row)
}

func (s *Storage) RedeemAccessCode(ctx context.Context, code string, guardian model.AccountID, rel model.Relationship, now time.Time) (*model.GuardianLink, error) {
	var link *model.GuardianLink
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := s.getAccessCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := c.RedemptionError(now); err != nil {
			return err
		}

		ms := now.UnixMilli()
		n, err := s.exec(ctx, tx, `
			UPDATE access_codes SET consumed_at = ?, consumed_by = ?
			WHERE code = ? AND consumed_at IS NULL AND expires_at > ?`,
			ms, string(guardian), code, ms,
		)
		if err != nil {
			return fmt.Errorf("consume access code: %w", err)
		}
		if n == 0 {
			// Lost the race: report what the winner left behind
			latest, err := s.getAccessCode(ctx, tx, code)
			if err != nil {
				return err
			}
			if err := latest.RedemptionError(now); err != nil {
				return err
			}
			return model.ErrAlreadyConsumed
		}

		n, err = s.exec(ctx, tx, `
			INSERT INTO guardian_links (guardian_id, player_id, relationship, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (guardian_id, player_id) DO NOTHING`,
			string(guardian), string(c.OwnerID), string(rel), ms,
		)
		if err != nil {
			return fmt.Errorf("insert guardian link: %w", err)
		}
		if n == 0 {
			return model.ErrDuplicateLink
		}

		link = &model.GuardianLink{
			GuardianID:   guardian,
			PlayerID:     c.OwnerID,
			Relationship: rel,
			CreatedAt:    fromMillis(ms),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Storage) DeleteExpiredAccessCodes(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := s.exec(ctx, s.db, `
		DELETE FROM access_codes WHERE consumed_at IS NULL AND expires_at <= ?`,
		cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}
	return int(n), nil
}

func scanAccessCode(row scanner) (*model.AccessCode, error) {
	var (
		c                         model.AccessCode
		owner                     string
		createdAt, expiresAt      int64
		consumedAt, invalidatedAt sql.NullInt64
		consumedBy                sql.NullString
	)
	if err := row.Scan(&c.Code, &owner, &createdAt, &expiresAt, &consumedAt, &consumedBy, &invalidatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	c.OwnerID = model.AccountID(owner)
	c.CreatedAt = fromMillis(createdAt)
	c.ExpiresAt = fromMillis(expiresAt)
	c.ConsumedAt = nullTime(consumedAt)
	c.InvalidatedAt = nullTime(invalidatedAt)
	if consumedBy.Valid {
		id := model.AccountID(consumedBy.String)
		c.ConsumedBy = &id
	}
	return &c, nil
}

// Guardian link operations

func (s *Storage) ListLinksForAccount(ctx context.Context, id model.AccountID) ([]*model.GuardianLink, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT guardian_id, player_id, relationship, created_at FROM guardian_links
		WHERE guardian_id = ? OR player_id = ?
		ORDER BY created_at, guardian_id, player_id`), string(id), string(id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	links := []*model.GuardianLink{}
	for rows.Next() {
		var (
			guardian, player, rel string
			createdAt             int64
		)
		if err := rows.Scan(&guardian, &player, &rel, &createdAt); err != nil {
			return nil, err
		}
		links = append(links, &model.GuardianLink{
			GuardianID:   model.AccountID(guardian),
			PlayerID:     model.AccountID(player),
			Relationship: model.Relationship(rel),
			CreatedAt:    fromMillis(createdAt),
		})
	}
	return links, rows.Err()
}

func (s *Storage) LinkExists(ctx context.Context, guardian, player model.AccountID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT COUNT(*) FROM guardian_links WHERE guardian_id = ? AND player_id = ?`),
		string(guardian), string(player)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Achievement operations

const achievementColumns = `id, player_id, submitted_by, category, tier, status, achievement_date,
	title, description, opponent, venue, stat_value, submission_notes, submitted_at,
	reviewed_by, reviewed_at, feedback`

func (s *Storage) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	var (
		reviewedBy sql.NullString
		reviewedAt sql.NullInt64
	)
	if a.ReviewedBy != nil {
		reviewedBy = sql.NullString{String: string(*a.ReviewedBy), Valid: true}
	}
	if a.ReviewedAt != nil {
		reviewedAt = sql.NullInt64{Int64: a.ReviewedAt.UnixMilli(), Valid: true}
	}

	_, err := s.exec(ctx, s.db, `
		INSERT INTO achievements (`+achievementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.PlayerID), string(a.SubmittedBy), string(a.Category), string(a.Tier),
		string(a.Status), a.AchievementDate.UnixMilli(), a.Title, a.Description, a.Opponent,
		a.Venue, a.Value, a.SubmissionNotes, a.SubmittedAt.UnixMilli(), reviewedBy, reviewedAt, a.Feedback,
	)
	if err != nil {
		return fmt.Errorf("insert achievement: %w", err)
	}
	return nil
}

func (s *Storage) GetAchievement(ctx context.Context, id model.AchievementID) (*model.Achievement, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT `+achievementColumns+` FROM achievements WHERE id = ?`), string(id))
	return scanAchievement(row)
}

func (s *Storage) ListAchievements(ctx context.Context, filter model.AchievementFilter) ([]*model.Achievement, error) {
	var (
		conds []string
		args  []any
	)
	if filter.PlayerID != "" {
		conds = append(conds, "player_id = ?")
		args = append(args, string(filter.PlayerID))
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Tier != "" {
		conds = append(conds, "tier = ?")
		args = append(args, string(filter.Tier))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + achievementColumns + ` FROM achievements`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY submitted_at, id"

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := []*model.Achievement{}
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Storage) TransitionAchievement(ctx context.Context, id model.AchievementID, to model.AchievementStatus, reviewer model.AccountID, at time.Time, feedback string) (*model.Achievement, error) {
	n, err := s.exec(ctx, s.db, `
		UPDATE achievements SET status = ?, reviewed_by = ?, reviewed_at = ?, feedback = ?
		WHERE id = ? AND status = ?`,
		string(to), string(reviewer), at.UnixMilli(), feedback, string(id), string(model.StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("transition achievement: %w", err)
	}

	a, err := s.GetAchievement(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, model.ErrInvalidTransition
	}
	return a, nil
}

func (s *Storage) StatsVersion(ctx context.Context, player model.AccountID) (int64, error) {
	// Reviews are terminal and records are never deleted, so the number of
	// reviewed achievements only grows with each transition
	var n int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT COUNT(*) FROM achievements WHERE player_id = ? AND status <> ?`),
		string(player), string(model.StatusPending)).Scan(&n)
	return n, err
}

func scanAchievement(row scanner) (*model.Achievement, error) {
	var (
		a                                           model.Achievement
		id, player, submittedBy, category, tier, st string
		achievementDate, submittedAt                int64
		reviewedBy                                  sql.NullString
		reviewedAt                                  sql.NullInt64
	)
	err := row.Scan(&id, &player, &submittedBy, &category, &tier, &st, &achievementDate,
		&a.Title, &a.Description, &a.Opponent, &a.Venue, &a.Value, &a.SubmissionNotes, &submittedAt,
		&reviewedBy, &reviewedAt, &a.Feedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	a.ID = model.AchievementID(id)
	a.PlayerID = model.AccountID(player)
	a.SubmittedBy = model.AccountID(submittedBy)
	a.Category = model.Category(category)
	a.Tier = model.Tier(tier)
	a.Status = model.AchievementStatus(st)
	a.AchievementDate = fromMillis(achievementDate)
	a.SubmittedAt = fromMillis(submittedAt)
	a.ReviewedAt = nullTime(reviewedAt)
	if reviewedBy.Valid {
		r := model.AccountID(reviewedBy.String)
		a.ReviewedBy = &r
	}
	return &a, nil
}

// Helpers

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
