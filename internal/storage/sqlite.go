package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"weatherbot/internal/domain"
	"weatherbot/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	age INTEGER NULL,
	gender TEXT NOT NULL DEFAULT 'unknown',
	hobbies TEXT NOT NULL DEFAULT '',
	motorist INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS subscriptions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	location_name TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	created_at TEXT NOT NULL,
	daily_weather INTEGER NOT NULL,
	emergency_alerts INTEGER NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite store ready", logx.String("path", cfg.Path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u := &domain.User{}
	var age sql.NullInt64
	var motorist int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, age, gender, hobbies, motorist FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &age, &u.Profile.Gender, &u.Profile.Hobbies, &motorist)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if age.Valid {
		u.Profile.Age = int(age.Int64)
	}
	u.Profile.Motorist = motorist == 1

	subs, err := s.loadSubscriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Subscriptions = subs
	return u, nil
}

func (s *sqliteStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.age, u.gender, u.hobbies, u.motorist,
		       s.id, s.location_name, s.latitude, s.longitude, s.created_at, s.daily_weather, s.emergency_alerts
		FROM users u
		LEFT JOIN subscriptions s ON s.user_id = u.id
		ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out  []*domain.User
		last *domain.User
	)
	for rows.Next() {
		var (
			id        int64
			username  string
			age       sql.NullInt64
			gender    string
			hobbies   string
			motorist  int
			subID     sql.NullString
			loc       sql.NullString
			lat, lon  sql.NullFloat64
			createdAt sql.NullString
			daily     sql.NullInt64
			emergency sql.NullInt64
		)
		if err := rows.Scan(&id, &username, &age, &gender, &hobbies, &motorist,
			&subID, &loc, &lat, &lon, &createdAt, &daily, &emergency); err != nil {
			return nil, err
		}

		if last == nil || last.ID != id {
			last = &domain.User{ID: id, Username: username}
			if age.Valid {
				last.Profile.Age = int(age.Int64)
			}
			last.Profile.Gender = gender
			last.Profile.Hobbies = hobbies
			last.Profile.Motorist = motorist == 1
			out = append(out, last)
		}

		if !subID.Valid {
			continue
		}
		sub, err := scanSubscription(id, subID.String, loc.String, lat.Float64, lon.Float64, createdAt.String, daily.Int64 == 1, emergency.Int64 == 1)
		if err != nil {
			// A corrupt row should not hide every other user.
			s.log.Warn("skipping bad subscription row", logx.Int64("user", id), logx.Err(err))
			continue
		}
		last.Subscriptions = append(last.Subscriptions, sub)
	}
	return out, rows.Err()
}

func (s *sqliteStore) SaveUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var age any
	if u.Profile.Age > 0 {
		age = u.Profile.Age
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, age, gender, hobbies, motorist)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			age = excluded.age,
			gender = excluded.gender,
			hobbies = excluded.hobbies,
			motorist = excluded.motorist`,
		u.ID, u.Username, age, u.Profile.Gender, u.Profile.Hobbies, boolInt(u.Profile.Motorist),
	); err != nil {
		return err
	}

	// Whole-aggregate write: replace the subscription list wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = ?`, u.ID); err != nil {
		return err
	}
	for _, sub := range u.Subscriptions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subscriptions (id, user_id, location_name, latitude, longitude, created_at, daily_weather, emergency_alerts)
			VALUES (?,?,?,?,?,?,?,?)`,
			sub.ID.String(), u.ID, sub.LocationName,
			sub.Coordinate.Latitude, sub.Coordinate.Longitude,
			sub.CreatedAt.UTC().Format(time.RFC3339Nano),
			boolInt(sub.DailyWeather), boolInt(sub.EmergencyAlerts),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) loadSubscriptions(ctx context.Context, userID int64) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_name, latitude, longitude, created_at, daily_weather, emergency_alerts
		FROM subscriptions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var (
			id, loc, createdAt string
			lat, lon           float64
			daily, emergency   int
		)
		if err := rows.Scan(&id, &loc, &lat, &lon, &createdAt, &daily, &emergency); err != nil {
			return nil, err
		}
		sub, err := scanSubscription(userID, id, loc, lat, lon, createdAt, daily == 1, emergency == 1)
		if err != nil {
			s.log.Warn("skipping bad subscription row", logx.Int64("user", userID), logx.Err(err))
			continue
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubscription(userID int64, id, loc string, lat, lon float64, createdAt string, daily, emergency bool) (domain.Subscription, error) {
	subID, err := uuid.Parse(id)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("subscription id: %w", err)
	}
	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		return domain.Subscription{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("created_at: %w", err)
	}
	return domain.Subscription{
		ID:              subID,
		UserID:          userID,
		LocationName:    loc,
		Coordinate:      coord,
		CreatedAt:       ts,
		DailyWeather:    daily,
		EmergencyAlerts: emergency,
	}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
