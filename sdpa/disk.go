package sdpa

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableEntry = "e"

	// diskBatchSize is the number of additions per transaction.
	diskBatchSize = 1 << 14
)

// DiskStore is an EntryStore backed by a sqlite database, for problems whose entries do not fit in memory.
type DiskStore struct {
	Path string

	db      *sql.DB
	tx      *sql.Tx
	stmt    *sql.Stmt
	pending int
}

// Disk returns a DiskStore at dbPath, panicking on errors.
func Disk(dbPath string) *DiskStore {
	s, err := NewDiskStore(dbPath)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return s
}

// NewDiskStore creates an empty store at dbPath, replacing any previous table.
func NewDiskStore(dbPath string) (*DiskStore, error) {
	s := &DiskStore{Path: dbPath}
	var err error
	s.db, err = newDB(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return s, nil
}

func (s *DiskStore) Add(e Entry) error {
	if s.tx == nil {
		if err := s.begin(); err != nil {
			return errors.Wrap(err, "")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := s.stmt.ExecContext(ctx, e.Var, e.Block, e.Row, e.Col, e.Value); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%#v", e))
	}
	s.pending++
	if s.pending >= diskBatchSize {
		if err := s.flush(); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func (s *DiskStore) begin() error {
	var err error
	s.tx, err = s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr := fmt.Sprintf(`INSERT INTO %s (v, b, i, j, x) VALUES (?, ?, ?, ?, ?) ON CONFLICT (v, b, i, j) DO UPDATE SET x = x + excluded.x`, tableEntry)
	s.stmt, err = s.tx.Prepare(sqlStr)
	if err != nil {
		s.tx.Rollback()
		s.tx = nil
		return errors.Wrap(err, sqlStr)
	}
	return nil
}

// flush commits the pending additions.
func (s *DiskStore) flush() error {
	if s.tx == nil {
		return nil
	}
	var err error
	if err1 := s.stmt.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	if err1 := s.tx.Commit(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	s.tx, s.stmt, s.pending = nil, nil, 0
	return err
}

func (s *DiskStore) Each(fn func(Entry) error) error {
	if err := s.flush(); err != nil {
		return errors.Wrap(err, "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 48*time.Hour)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT v, b, i, j, x FROM %s WHERE x != 0 ORDER BY v, b, i, j`, tableEntry)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Var, &e.Block, &e.Row, &e.Col, &e.Value); err != nil {
			return errors.Wrap(err, "")
		}
		if err := fn(e); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// NumNonZero returns the number of nonzero elements.
func (s *DiskStore) NumNonZero() (int, error) {
	if err := s.flush(); err != nil {
		return -1, errors.Wrap(err, "")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf("SELECT count(1) FROM %s WHERE x != 0", tableEntry)
	var n int
	if err := s.db.QueryRowContext(ctx, sqlStr).Scan(&n); err != nil {
		return -1, errors.Wrap(err, "")
	}
	return n, nil
}

// Close closes the database and removes its file.
func (s *DiskStore) Close() error {
	var err error
	if err1 := s.flush(); err1 != nil && err == nil {
		err = err1
	}
	if err1 := s.db.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err1 := os.Remove(s.Path); err1 != nil && err == nil {
		err = err1
	}
	return err
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=OFF", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// A single connection keeps the open transaction visible to queries.
	db.SetMaxOpenConns(1)

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableEntry)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE %s (v INTEGER, b INTEGER, i INTEGER, j INTEGER, x REAL, PRIMARY KEY (v, b, i, j)) STRICT`, tableEntry)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
