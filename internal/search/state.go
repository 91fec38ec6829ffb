// Package search implements the debounced, page-indexed result caches behind
// every list page and inline picker.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cloo-solutions/orderdesk/internal/pagination"
)

// DefaultWindow is the quiescence period before a typed query is evaluated.
const DefaultWindow = 200 * time.Millisecond

// ErrSuperseded is returned when a response arrives for a query that has
// since been replaced. The response is discarded.
var ErrSuperseded = errors.New("search: superseded by a newer query")

// ErrClosed is returned by operations on a closed State.
var ErrClosed = errors.New("search: state closed")

// Fetcher loads one page of results for a query.
type Fetcher[Q comparable, T any] func(ctx context.Context, query Q, page int, uncache bool) (pagination.Page[T], error)

// Evaluation describes one completed fetch.
type Evaluation struct {
	Name     string
	Query    string
	Page     int
	Uncache  bool
	Results  int
	Count    int
	Duration time.Duration
	Err      error
}

// Recorder observes every fetch a State makes.
type Recorder interface {
	Record(ctx context.Context, ev Evaluation)
}

type Option func(*options)

type options struct {
	window       time.Duration
	staleDiscard bool
	onError      func(error)
	recorder     Recorder
}

// WithWindow sets the debounce window. Zero evaluates on the next tick.
func WithWindow(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.window = d
		}
	}
}

// WithStaleDiscard controls generation stamping. When enabled (the default),
// responses for a superseded query are dropped and the superseded requests
// are cancelled. When disabled, every response is applied as it arrives.
func WithStaleDiscard(enabled bool) Option {
	return func(o *options) {
		o.staleDiscard = enabled
	}
}

// WithErrorHandler receives failures of debounced evaluations.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// State is the search cache of one domain for one owner.
//
// Pages are kept by number together with the order in which they arrived;
// Items concatenates them in arrival order. Concurrent scrolls each claim a
// distinct page but may land out of page order.
type State[Q comparable, T any] struct {
	name  string
	fetch Fetcher[Q, T]
	opts  options

	mu        sync.Mutex
	query     Q
	evaluated bool
	pending   Q
	timer     *time.Timer
	page      int
	pages     map[int][]T
	arrival   []int
	count     int
	inflight  int

	generation uint64
	genCtx     context.Context
	genCancel  context.CancelFunc

	base   context.Context
	stop   context.CancelFunc
	closed bool
}

func NewState[Q comparable, T any](name string, fetch Fetcher[Q, T], opts ...Option) *State[Q, T] {
	o := options{
		window:       DefaultWindow,
		staleDiscard: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onError == nil {
		o.onError = func(err error) {
			log.Printf("search %s: %v", name, err)
		}
	}

	base, stop := context.WithCancel(context.Background())
	genCtx, genCancel := context.WithCancel(base)
	return &State[Q, T]{
		name:      name,
		fetch:     fetch,
		opts:      o,
		page:      1,
		pages:     make(map[int][]T),
		base:      base,
		stop:      stop,
		genCtx:    genCtx,
		genCancel: genCancel,
	}
}

func (s *State[Q, T]) Name() string {
	return s.name
}

// SetQuery feeds raw input. Only the last value of a burst is evaluated once
// the window has passed, and only if it differs from the last evaluated query.
func (s *State[Q, T]) SetQuery(q Q) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = q
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.opts.window, s.fire)
}

func (s *State[Q, T]) fire() {
	s.mu.Lock()
	if s.closed || (s.evaluated && s.pending == s.query) {
		s.mu.Unlock()
		return
	}
	q := s.pending
	s.mu.Unlock()

	if err := s.Evaluate(s.base, q); err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrClosed) {
		s.opts.onError(err)
	}
}

// ticket is the bookkeeping of one request in flight.
type ticket[Q comparable] struct {
	query      Q
	page       int
	uncache    bool
	generation uint64
	ctx        context.Context
	release    func()
}

// begin registers a request; the caller holds s.mu.
func (s *State[Q, T]) begin(ctx context.Context, q Q, page int, uncache bool) ticket[Q] {
	s.inflight++
	t := ticket[Q]{query: q, page: page, uncache: uncache, generation: s.generation, ctx: ctx, release: func() {}}
	if s.opts.staleDiscard {
		reqCtx, cancel := context.WithCancel(ctx)
		stop := context.AfterFunc(s.genCtx, cancel)
		t.ctx = reqCtx
		t.release = func() {
			stop()
			cancel()
		}
	}
	return t
}

// run performs the fetch and reacquires s.mu. It reports whether the
// response still belongs to the current generation.
func (s *State[Q, T]) run(t ticket[Q]) (pagination.Page[T], bool, error) {
	start := time.Now()
	result, err := s.fetch(t.ctx, t.query, t.page, t.uncache)
	t.release()
	s.record(t, result, err, time.Since(start))

	s.mu.Lock()
	s.inflight--
	if s.closed {
		return result, false, ErrClosed
	}
	if s.opts.staleDiscard && t.generation != s.generation {
		return result, false, ErrSuperseded
	}
	return result, true, err
}

func (s *State[Q, T]) record(t ticket[Q], result pagination.Page[T], err error, d time.Duration) {
	if s.opts.recorder == nil {
		return
	}
	s.opts.recorder.Record(s.base, Evaluation{
		Name:     s.name,
		Query:    queryString(t.query),
		Page:     t.page,
		Uncache:  t.uncache,
		Results:  len(result.List),
		Count:    result.Count,
		Duration: d,
		Err:      err,
	})
}

func queryString(q any) string {
	if s, ok := q.(string); ok {
		return s
	}
	data, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(data)
}

// store places a page in the cache; the caller holds s.mu.
func (s *State[Q, T]) store(page int, list []T) {
	if _, ok := s.pages[page]; !ok {
		s.arrival = append(s.arrival, page)
	}
	s.pages[page] = list
}

// Evaluate loads page 1 of q and replaces the whole cache with it. It bypasses
// the debounce window.
func (s *State[Q, T]) Evaluate(ctx context.Context, q Q) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.generation++
	if s.opts.staleDiscard {
		s.genCancel()
		s.genCtx, s.genCancel = context.WithCancel(s.base)
	}
	s.query = q
	s.evaluated = true
	s.page = 1
	t := s.begin(ctx, q, 1, false)
	s.mu.Unlock()

	result, current, err := s.run(t)
	defer s.mu.Unlock()
	if !current {
		return err
	}
	if err != nil {
		// The query stays, but nothing older than it may be shown, and the
		// next identical query must fetch again.
		s.pages = map[int][]T{}
		s.arrival = nil
		s.count = 0
		s.evaluated = false
		return err
	}

	s.pages = map[int][]T{1: result.List}
	s.arrival = []int{1}
	s.count = result.Count
	return nil
}

// Scroll loads the page after the cursor and appends it. It returns false
// without a request when every match is already loaded. The cursor advances
// before the fetch and is not rolled back on error: a failed page stays a gap
// that Invalidate or a fresh Evaluate fills, and the next Scroll moves on.
func (s *State[Q, T]) Scroll(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if pagination.Exhausted(s.count, s.loaded()) {
		s.mu.Unlock()
		return false, nil
	}
	s.page++
	t := s.begin(ctx, s.query, s.page, false)
	s.mu.Unlock()

	result, current, err := s.run(t)
	defer s.mu.Unlock()
	if !current || err != nil {
		return true, err
	}

	s.store(t.page, result.List)
	s.count = result.Count
	return true, nil
}

// Invalidate re-fetches the page under the cursor, bypassing server caches,
// and overwrites it.
func (s *State[Q, T]) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	t := s.begin(ctx, s.query, s.page, true)
	s.mu.Unlock()

	result, current, err := s.run(t)
	defer s.mu.Unlock()
	if !current || err != nil {
		return err
	}

	s.store(t.page, result.List)
	s.count = result.Count
	return nil
}

// ChangePage moves the cursor and fetches the page unless it is cached. It
// reports whether a request was made.
func (s *State[Q, T]) ChangePage(ctx context.Context, page int) (bool, error) {
	if page < 1 {
		return false, pagination.ErrInvalidPage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	s.page = page
	if _, ok := s.pages[page]; ok {
		s.mu.Unlock()
		return false, nil
	}
	t := s.begin(ctx, s.query, page, false)
	s.mu.Unlock()

	result, current, err := s.run(t)
	defer s.mu.Unlock()
	if !current || err != nil {
		return true, err
	}

	s.store(t.page, result.List)
	s.count = result.Count
	return true, nil
}

// Load stores a page obtained by fetch, for searches that do not go through
// the query (such as a date range). The cursor moves to page.
func (s *State[Q, T]) Load(ctx context.Context, page int, fetch func(ctx context.Context) (pagination.Page[T], error)) error {
	if page < 1 {
		return pagination.ErrInvalidPage
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.page = page
	t := s.begin(ctx, s.query, page, false)
	s.mu.Unlock()

	start := time.Now()
	result, err := fetch(t.ctx)
	t.release()
	s.record(t, result, err, time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.closed {
		return ErrClosed
	}
	if s.opts.staleDiscard && t.generation != s.generation {
		return ErrSuperseded
	}
	if err != nil {
		return err
	}

	s.store(page, result.List)
	s.count = result.Count
	return nil
}

// loaded is the number of cached entries; the caller holds s.mu.
func (s *State[Q, T]) loaded() int {
	n := 0
	for _, list := range s.pages {
		n += len(list)
	}
	return n
}

// Snapshot is a consistent copy of a State.
type Snapshot[Q comparable, T any] struct {
	Query   Q    `json:"query"`
	Page    int  `json:"page"`
	Count   int  `json:"count"`
	Loaded  int  `json:"loaded"`
	Loading bool `json:"loading"`
	Items   []T  `json:"items"`
}

func (s *State[Q, T]) Snapshot() Snapshot[Q, T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items()
	return Snapshot[Q, T]{
		Query:   s.query,
		Page:    s.page,
		Count:   s.count,
		Loaded:  len(items),
		Loading: s.inflight > 0,
		Items:   items,
	}
}

// Items returns every cached entry, pages in arrival order.
func (s *State[Q, T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items()
}

func (s *State[Q, T]) items() []T {
	out := make([]T, 0, s.loaded())
	for _, p := range s.arrival {
		out = append(out, s.pages[p]...)
	}
	return out
}

// PageItems returns a copy of one cached page.
func (s *State[Q, T]) PageItems(page int) ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.pages[page]
	if !ok {
		return nil, false
	}
	return append([]T(nil), list...), true
}

// Pages returns the cached page numbers in arrival order.
func (s *State[Q, T]) Pages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.arrival...)
}

func (s *State[Q, T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *State[Q, T]) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *State[Q, T]) Query() Q {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Loading reports whether any request is in flight.
func (s *State[Q, T]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Lookup returns the first cached entry matching match.
func (s *State[Q, T]) Lookup(match func(T) bool) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.arrival {
		for _, item := range s.pages[p] {
			if match(item) {
				return item, true
			}
		}
	}
	var zero T
	return zero, false
}

// Update replaces every cached entry matching match with item and returns how
// many were replaced.
func (s *State[Q, T]) Update(match func(T) bool, item T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, list := range s.pages {
		for i := range list {
			if match(list[i]) {
				list[i] = item
				n++
			}
		}
	}
	return n
}

// Close stops the debounce timer and cancels every request in flight.
func (s *State[Q, T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.stop()
}
