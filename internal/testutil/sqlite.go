// Package testutil provides an in-process SQL database for repository and
// handler tests.  The SQLite schema mirrors internal/database/schema.sql
// column for column.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/booking-marketplace/internal/database"
)

const schema = `
CREATE TABLE users (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  name          TEXT NOT NULL,
  email         TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user','provider','admin')),
  phone         TEXT NOT NULL DEFAULT '',
  bio           TEXT NOT NULL DEFAULT '',
  created_at    DATETIME NOT NULL
);
CREATE TABLE refresh_tokens (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    INTEGER NOT NULL,
  token_hash TEXT NOT NULL UNIQUE,
  expires_at DATETIME NOT NULL,
  revoked_at DATETIME NULL,
  created_at DATETIME NOT NULL
);
CREATE TABLE auth_logs (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id    INTEGER NOT NULL,
  action     TEXT NOT NULL,
  ip_address TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
);
CREATE TABLE service_categories (
  id   INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE
);
CREATE TABLE services (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  provider_id INTEGER NOT NULL,
  category_id INTEGER NULL,
  name        TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price       REAL NOT NULL,
  base_hours  REAL NOT NULL DEFAULT 0,
  max_workers INTEGER NOT NULL DEFAULT 1,
  created_at  DATETIME NOT NULL
);
CREATE TABLE bookings (
  id                INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id           INTEGER NOT NULL,
  provider_id       INTEGER NOT NULL,
  service_id        INTEGER NOT NULL,
  booking_date      DATETIME NOT NULL,
  status            TEXT NOT NULL DEFAULT 'pending'
                    CHECK (status IN ('pending','accepted','in-progress','completed','cancelled')),
  workers_requested INTEGER NOT NULL DEFAULT 1,
  estimated_hours   INTEGER NOT NULL DEFAULT 0,
  estimated_price   REAL NOT NULL DEFAULT 0,
  booking_details   TEXT NULL,
  accepted_at       DATETIME NULL,
  started_at        DATETIME NULL,
  completed_at      DATETIME NULL,
  created_at        DATETIME NOT NULL
);
CREATE TABLE reviews (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  booking_id  INTEGER NOT NULL UNIQUE,
  user_id     INTEGER NOT NULL,
  provider_id INTEGER NOT NULL,
  rating      INTEGER NOT NULL,
  comment     TEXT NULL,
  created_at  DATETIME NOT NULL
);
CREATE TABLE notifications (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id     INTEGER NOT NULL,
  message     TEXT NOT NULL,
  type        TEXT NOT NULL,
  read_status BOOLEAN NOT NULL DEFAULT 0,
  created_at  DATETIME NOT NULL
);
CREATE TABLE provider_availability (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  provider_id INTEGER NOT NULL,
  date        TEXT NOT NULL,
  start_time  TEXT NOT NULL,
  end_time    TEXT NOT NULL
);
`

// NewDB opens a fresh SQLite database under t.TempDir() with the full schema
// applied.  A single connection keeps concurrent test writers serialised the
// way row locks serialise them on MySQL.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_time_format=sqlite")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, database.Apply(ctx, db, schema))
	return db
}

// Exec runs a statement and fails the test on error.  It returns the
// last insert id.
func Exec(t *testing.T, db *sql.DB, query string, args ...any) uint64 {
	t.Helper()
	res, err := db.Exec(query, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// SeedUser inserts a user row with a placeholder password hash.
func SeedUser(t *testing.T, db *sql.DB, name, email, role string) uint64 {
	t.Helper()
	return Exec(t, db,
		"INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?,?,?,?,?)",
		name, email, "x", role, time.Now().UTC())
}

// SeedService inserts a service owned by providerID.
func SeedService(t *testing.T, db *sql.DB, providerID uint64, name string, price, baseHours float64, maxWorkers int) uint64 {
	t.Helper()
	return Exec(t, db,
		"INSERT INTO services (provider_id, name, price, base_hours, max_workers, created_at) VALUES (?,?,?,?,?,?)",
		providerID, name, price, baseHours, maxWorkers, time.Now().UTC())
}

// SeedBooking inserts a booking in the given status.
func SeedBooking(t *testing.T, db *sql.DB, userID, providerID, serviceID uint64, status string, date time.Time) uint64 {
	t.Helper()
	return Exec(t, db,
		`INSERT INTO bookings (user_id, provider_id, service_id, booking_date, status,
		  workers_requested, estimated_hours, estimated_price, created_at)
		 VALUES (?,?,?,?,?,1,1,10,?)`,
		userID, providerID, serviceID, date.UTC(), status, time.Now().UTC())
}
