package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePG emulates the ziva_credential_cache table in memory.
type fakePG struct {
	mu    sync.Mutex
	rows  map[string]string
	execs []string
}

func newFakePG() *fakePG {
	return &fakePG{rows: make(map[string]string)}
}

func (f *fakePG) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, sql)

	switch sql {
	case createTableSQL:
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	case replaceBlobSQL:
		f.rows[args[0].(string)] = args[1].(string)
	case appendBlobSQL:
		f.rows[args[0].(string)] += args[1].(string)
	default:
		return pgconn.CommandTag{}, errors.New("fakePG: unexpected statement")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakePG) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sql != selectBlobSQL {
		return fakeRow{err: errors.New("fakePG: unexpected query")}
	}
	blob, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{val: blob}
}

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.val
	return nil
}
