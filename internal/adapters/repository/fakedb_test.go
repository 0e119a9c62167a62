package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the food_log_items and daily_logs
// tables. Writes made inside a transaction only become visible on commit.
type fakeStore struct {
	mu        sync.Mutex
	items     [][]driver.Value
	dailyLogs map[string][]driver.Value

	// failDailyLogUpserts makes the next n daily_logs upserts fail
	failDailyLogUpserts int
	commits             int
	rollbacks           int
}

func newFakeStore() *fakeStore {
	return &fakeStore{dailyLogs: make(map[string][]driver.Value)}
}

func (s *fakeStore) open() *sql.DB {
	return sql.OpenDB(fakeConnector{store: s})
}

func (s *fakeStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// caloriesOf sums the stored daily totals of a user over all dates
func (s *fakeStore) caloriesOf(userID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, row := range s.dailyLogs {
		if row[0] == userID.String() {
			total += row[2].(int64)
		}
	}
	return total
}

type fakeConnector struct {
	store *fakeStore
}

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{store: c.store}, nil
}

func (c fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("use fakeConnector")
}

type fakeConn struct {
	store *fakeStore
	tx    *fakeTx
}

type fakeTx struct {
	conn      *fakeConn
	items     [][]driver.Value
	dailyLogs map[string][]driver.Value
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements are not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	c.tx = &fakeTx{conn: c, dailyLogs: make(map[string][]driver.Value)}
	return c.tx, nil
}

func (tx *fakeTx) Commit() error {
	s := tx.conn.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, tx.items...)
	for k, v := range tx.dailyLogs {
		s.dailyLogs[k] = v
	}
	s.commits++
	tx.conn.tx = nil
	return nil
}

func (tx *fakeTx) Rollback() error {
	s := tx.conn.store
	s.mu.Lock()
	s.rollbacks++
	s.mu.Unlock()
	tx.conn.tx = nil
	return nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(query, "pg_advisory_xact_lock"):
		return driver.RowsAffected(0), nil

	case strings.HasPrefix(query, "INSERT INTO food_log_items"):
		row := values(args)
		date, err := time.Parse("2006-01-02", row[2].(string))
		if err != nil {
			return nil, err
		}
		row[2] = date
		if c.hasItem(row[0]) {
			return driver.RowsAffected(0), nil
		}
		if c.tx != nil {
			c.tx.items = append(c.tx.items, row)
		} else {
			s.items = append(s.items, row)
		}
		return driver.RowsAffected(1), nil

	case strings.HasPrefix(query, "INSERT INTO daily_logs"):
		if s.failDailyLogUpserts > 0 {
			s.failDailyLogUpserts--
			return nil, errors.New("daily_logs: connection reset by peer")
		}
		row := values(args)
		key := row[0].(string) + "|" + row[1].(string)
		if c.tx != nil {
			c.tx.dailyLogs[key] = row
		} else {
			s.dailyLogs[key] = row
		}
		return driver.RowsAffected(1), nil
	}
	return nil, errors.New("unexpected statement: " + query)
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(query, "FROM food_log_items") {
		return nil, errors.New("unexpected query: " + query)
	}
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	visible := append([][]driver.Value{}, s.items...)
	if c.tx != nil {
		visible = append(visible, c.tx.items...)
	}

	userID, date := args[0].Value.(string), args[1].Value.(string)
	rows := &fakeRows{}
	for _, row := range visible {
		if row[1] == userID && row[2].(time.Time).Format("2006-01-02") == date {
			rows.rows = append(rows.rows, row)
		}
	}
	return rows, nil
}

// hasItem looks at committed rows and at the open transaction
func (c *fakeConn) hasItem(id driver.Value) bool {
	for _, row := range c.store.items {
		if row[0] == id {
			return true
		}
	}
	if c.tx != nil {
		for _, row := range c.tx.items {
			if row[0] == id {
				return true
			}
		}
	}
	return false
}

func values(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

type fakeRows struct {
	rows [][]driver.Value
	next int
}

func (r *fakeRows) Columns() []string {
	return []string{"id", "user_id", "log_date", "source", "barcode", "description",
		"calories", "protein", "total_carbs", "total_fat", "fiber", "vitamin_c", "vitamin_d",
		"calcium", "iron", "created_at"}
}

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
