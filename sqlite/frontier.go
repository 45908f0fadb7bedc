package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/crawl"
)

// Compile-time interface verification.
var _ crawlfront.Frontier = (*Frontier)(nil)

// Request states.
const (
	StateQueued   = "queued"
	StateInFlight = "in_flight"
	StateCrawled  = "crawled"
	StateFailed   = "failed"
)

// Frontier implements crawlfront.Frontier using SQLite. Requests are
// deduplicated by fingerprint and survive restarts; requests handed out but
// never reported are queued again on Start.
type Frontier struct {
	db *DB

	autoStart   bool
	maxRequests int
	options     map[string]any

	mu       sync.Mutex
	started  bool
	finished bool
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithMaxRequests finishes the frontier after n requests have been handed
// out over its lifetime. Zero means unlimited.
func WithMaxRequests(n int) FrontierOption {
	return func(f *Frontier) {
		f.maxRequests = n
	}
}

// WithAutoStart sets whether the frontier starts itself. A frontier that
// starts itself only requeues in-flight requests when Start is called.
func WithAutoStart(auto bool) FrontierOption {
	return func(f *Frontier) {
		f.autoStart = auto
	}
}

// WithOptions keeps backend options the crawl settings do not recognize.
func WithOptions(opts map[string]any) FrontierOption {
	return func(f *Frontier) {
		f.options = maps.Clone(opts)
	}
}

// NewFrontier creates a new Frontier on db.
func NewFrontier(db *DB, opts ...FrontierOption) *Frontier {
	f := &Frontier{db: db, autoStart: true}
	for _, opt := range opts {
		opt(f)
	}
	f.started = f.autoStart
	return f
}

// Options returns a copy of the backend options the frontier was created
// with.
func (f *Frontier) Options() map[string]any {
	return maps.Clone(f.options)
}

// Start queues again any request left in flight by a previous run.
func (f *Frontier) Start(ctx context.Context) error {
	_, err := f.db.ExecContext(ctx, `
		UPDATE frontier_requests SET state = ?, updated_at = ? WHERE state = ?
	`, StateQueued, now(), StateInFlight)
	if err != nil {
		return fmt.Errorf("requeue in-flight requests: %w", err)
	}
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}

// Stop stops handing out requests.
func (f *Frontier) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

// AddSeeds stores seeds not seen before.
func (f *Frontier) AddSeeds(ctx context.Context, seeds []*crawlfront.FrontierRequest) error {
	return f.insert(ctx, "", seeds)
}

// LinksExtracted stores links not seen before and records where they were
// found.
func (f *Frontier) LinksExtracted(ctx context.Context, req *crawlfront.FrontierRequest, links []*crawlfront.FrontierRequest) error {
	return f.insert(ctx, fingerprintOf(req), links)
}

func (f *Frontier) insert(ctx context.Context, parent crawlfront.Fingerprint, reqs []*crawlfront.FrontierRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	ts := now()
	for _, req := range reqs {
		fp := fingerprintOf(req)
		data, err := json.Marshal(req)
		if err != nil {
			return crawlfront.Errorf(crawlfront.EINVALID, "encode request <%s>: %v", req.URL, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO frontier_requests (fingerprint, url, host, slot, priority, state, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, string(fp), req.URL, crawl.HostKey(req.URL), crawl.SlotFor(req), req.Priority, StateQueued, string(data), ts, ts); err != nil {
			return err
		}
		if parent != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO frontier_links (parent, child) VALUES (?, ?)
			`, string(parent), string(fp)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetNextRequests hands out up to maxCount queued requests by priority,
// oldest first, skipping hosts listed in overusedKeys. Hosts are stored by
// name, so in IP mode only requests to literal addresses can be skipped.
// A maxCount of zero means no cap.
func (f *Frontier) GetNextRequests(ctx context.Context, maxCount int, keyType crawlfront.KeyType, overusedKeys []string) ([]*crawlfront.FrontierRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.started {
		return nil, crawlfront.Errorf(crawlfront.EINVALID, "frontier is not started")
	}
	if f.finished {
		return nil, nil
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	limit := maxCount
	var handed int
	if f.maxRequests > 0 {
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM frontier_requests WHERE state != ?
		`, StateQueued).Scan(&handed); err != nil {
			return nil, err
		}
		remaining := f.maxRequests - handed
		if remaining <= 0 {
			f.finished = true
			return nil, nil
		}
		if limit <= 0 || remaining < limit {
			limit = remaining
		}
	}

	var query strings.Builder
	args := []any{StateQueued}
	query.WriteString("SELECT id, data FROM frontier_requests WHERE state = ?")
	if len(overusedKeys) > 0 {
		query.WriteString(" AND host NOT IN (?" + strings.Repeat(", ?", len(overusedKeys)-1) + ")")
		for _, key := range overusedKeys {
			args = append(args, key)
		}
	}
	query.WriteString(" ORDER BY priority DESC, id ASC")
	appendPagination(&query, &args, limit, 0)

	rows, err := tx.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	var ids []int64
	var out []*crawlfront.FrontierRequest
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			rows.Close()
			return nil, err
		}
		var req crawlfront.FrontierRequest
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode request %d: %w", id, err)
		}
		ids = append(ids, id)
		out = append(out, &req)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ts := now()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `
			UPDATE frontier_requests SET state = ?, updated_at = ? WHERE id = ?
		`, StateInFlight, ts, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if f.maxRequests > 0 && handed+len(out) >= f.maxRequests {
		f.finished = true
	}
	return out, nil
}

// PageCrawled marks the page's request as crawled.
func (f *Frontier) PageCrawled(ctx context.Context, resp *crawlfront.FrontierResponse) error {
	if resp.Request == nil {
		return crawlfront.Errorf(crawlfront.EINVALID, "frontier response <%s> has no request", resp.URL)
	}
	_, err := f.db.ExecContext(ctx, `
		UPDATE frontier_requests SET state = ?, status_code = ?, updated_at = ? WHERE fingerprint = ?
	`, StateCrawled, resp.StatusCode, now(), string(fingerprintOf(resp.Request)))
	return err
}

// RequestError marks a request as failed with the given error kind.
func (f *Frontier) RequestError(ctx context.Context, req *crawlfront.FrontierRequest, errKind string) error {
	_, err := f.db.ExecContext(ctx, `
		UPDATE frontier_requests SET state = ?, error_kind = ?, updated_at = ? WHERE fingerprint = ?
	`, StateFailed, errKind, now(), string(fingerprintOf(req)))
	return err
}

// Finished reports whether the request budget is spent.
func (f *Frontier) Finished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// AutoStart reports whether the frontier starts itself.
func (f *Frontier) AutoStart() bool {
	return f.autoStart
}

// Counts holds the number of stored requests per state.
type Counts struct {
	Queued   int
	InFlight int
	Crawled  int
	Failed   int
}

// Total returns the number of stored requests.
func (c Counts) Total() int {
	return c.Queued + c.InFlight + c.Crawled + c.Failed
}

// Counts returns the number of stored requests per state.
func (f *Frontier) Counts(ctx context.Context) (Counts, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM frontier_requests GROUP BY state
	`)
	if err != nil {
		return Counts{}, err
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return Counts{}, err
		}
		switch state {
		case StateQueued:
			c.Queued = n
		case StateInFlight:
			c.InFlight = n
		case StateCrawled:
			c.Crawled = n
		case StateFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}

// Entry is a stored frontier request with its crawl outcome.
type Entry struct {
	Fingerprint crawlfront.Fingerprint
	URL         string
	Slot        string
	Priority    int
	State       string
	StatusCode  int
	ErrorKind   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntryFilter selects stored requests.
type EntryFilter struct {
	State  *string
	Slot   *string
	Limit  int
	Offset int
}

// FindEntries returns stored requests matching the filter in queue order.
func (f *Frontier) FindEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT fingerprint, url, slot, priority, state, status_code, error_kind, created_at, updated_at FROM frontier_requests WHERE 1=1")
	if filter.State != nil {
		query.WriteString(" AND state = ?")
		args = append(args, *filter.State)
	}
	if filter.Slot != nil {
		query.WriteString(" AND slot = ?")
		args = append(args, *filter.Slot)
	}
	query.WriteString(" ORDER BY priority DESC, id ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := f.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var fp, createdAt, updatedAt string
		if err := rows.Scan(&fp, &e.URL, &e.Slot, &e.Priority, &e.State, &e.StatusCode, &e.ErrorKind, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		e.Fingerprint = crawlfront.Fingerprint(fp)
		if e.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// FindEntryByFingerprint returns the stored request with fingerprint fp.
func (f *Frontier) FindEntryByFingerprint(ctx context.Context, fp crawlfront.Fingerprint) (*Entry, error) {
	var e Entry
	var createdAt, updatedAt string
	err := f.db.QueryRowContext(ctx, `
		SELECT url, slot, priority, state, status_code, error_kind, created_at, updated_at
		FROM frontier_requests
		WHERE fingerprint = ?
	`, string(fp)).Scan(&e.URL, &e.Slot, &e.Priority, &e.State, &e.StatusCode, &e.ErrorKind, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, crawlfront.Errorf(crawlfront.ENOTFOUND, "frontier request not found")
	}
	if err != nil {
		return nil, err
	}
	e.Fingerprint = fp
	if e.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &e, nil
}

// Links returns the fingerprints of requests extracted from the page of fp.
func (f *Frontier) Links(ctx context.Context, fp crawlfront.Fingerprint) ([]crawlfront.Fingerprint, error) {
	rows, err := f.db.QueryContext(ctx, `
		SELECT child FROM frontier_links WHERE parent = ? ORDER BY child
	`, string(fp))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []crawlfront.Fingerprint
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, err
		}
		out = append(out, crawlfront.Fingerprint(child))
	}
	return out, rows.Err()
}

func fingerprintOf(req *crawlfront.FrontierRequest) crawlfront.Fingerprint {
	if req == nil {
		return ""
	}
	if req.Meta.Fingerprint != "" {
		return req.Meta.Fingerprint
	}
	return crawl.FrontierFingerprint(req)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTimestamp(value, column string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", column, err)
	}
	return t, nil
}

// appendPagination appends LIMIT and OFFSET clauses when they are positive.
// SQLite needs a LIMIT before OFFSET, so an offset alone gets LIMIT -1.
func appendPagination(query *strings.Builder, args *[]any, limit, offset int) {
	switch {
	case limit > 0:
		query.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	case offset > 0:
		query.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		query.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
}
