package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/metrics"
)

const (
	defaultShardCount            = 8
	defaultMetricsUpdateInterval = 5 * time.Second
	maxSessionIDLength           = 128
)

type session struct {
	dataset   *model.Dataset
	allocated uint64 // last sequence handed out by NextSeq
	applied   uint64 // newest sequence applied or cleared
	selection fairness.Selection
	touched   time.Time
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

var _ Store = (*SessionStore)(nil)

// SessionStore implements Store with fnv-hashed shards.
type SessionStore struct {
	shards                []*shard
	shardCount            int
	ttl                   time.Duration
	metricsUpdateInterval time.Duration
	now                   func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSessionStore builds the store and starts its background metrics and,
// when a TTL is set, idle-session eviction. Call Close to stop them.
func NewSessionStore(ctx context.Context, opts ...Option) *SessionStore {
	s := &SessionStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		now:                   time.Now,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*session)}
	}

	s.every(ctx, s.metricsUpdateInterval, s.updateMetrics)
	if s.ttl > 0 {
		s.every(ctx, s.ttl/2, s.evictIdle)
	}
	return s
}

// Close stops the background goroutines.
func (s *SessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *SessionStore) every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (s *SessionStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// get returns the session, creating it when missing. Caller holds sh.mu.
func (s *SessionStore) get(sh *shard, sessionID string) *session {
	sess, ok := sh.sessions[sessionID]
	if !ok {
		sess = &session{selection: fairness.DefaultSelection()}
		sh.sessions[sessionID] = sess
	}
	sess.touched = s.now()
	return sess
}

// ValidSessionID reports whether id is usable as a session key.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n")
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func (s *SessionStore) NextSeq(_ context.Context, sessionID string) uint64 {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := s.get(sh, sessionID)
	sess.allocated++
	return sess.allocated
}

func (s *SessionStore) Replace(_ context.Context, sessionID string, ds *model.Dataset) (bool, error) {
	defer observe("replace", time.Now())
	if !ValidSessionID(sessionID) {
		return false, ErrInvalidSession
	}
	if ds == nil {
		return false, fmt.Errorf("replace %s: nil dataset", sessionID)
	}

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := s.get(sh, sessionID)
	if ds.Seq <= sess.applied {
		return false, nil
	}
	sess.dataset = ds.Clone()
	sess.applied = ds.Seq
	if ds.Seq > sess.allocated {
		sess.allocated = ds.Seq
	}
	return true, nil
}

func (s *SessionStore) Current(_ context.Context, sessionID string) (*model.Dataset, error) {
	defer observe("current", time.Now())

	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[sessionID]
	if !ok || sess.dataset == nil {
		return nil, ErrNoDataset
	}
	return sess.dataset.Clone(), nil
}

func (s *SessionStore) Clear(_ context.Context, sessionID string) error {
	defer observe("clear", time.Now())

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.dataset = nil
	sess.applied = sess.allocated
	return nil
}

func (s *SessionStore) SetInclusion(_ context.Context, sessionID, column string, included bool) (model.Column, error) {
	defer observe("set_inclusion", time.Now())

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[sessionID]
	if !ok || sess.dataset == nil {
		return model.Column{}, ErrNoDataset
	}
	_, i, found := sess.dataset.Column(column)
	if !found {
		return model.Column{}, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	// Copy on write so datasets handed out earlier stay unchanged.
	next := sess.dataset.Clone()
	next.Columns[i].Included = included
	sess.dataset = next
	sess.touched = s.now()
	return next.Columns[i], nil
}

func (s *SessionStore) Selection(_ context.Context, sessionID string) fairness.Selection {
	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	sess, ok := sh.sessions[sessionID]
	var sel fairness.Selection
	if ok {
		sel = sess.selection.Clone()
	}
	sh.mu.RUnlock()

	if !ok {
		return fairness.DefaultSelection()
	}
	return sel
}

func (s *SessionStore) SetSelection(_ context.Context, sessionID string, sel fairness.Selection) (fairness.Selection, error) {
	defer observe("set_selection", time.Now())
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	normalized := sel.Normalize()

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s.get(sh, sessionID).selection = normalized
	return normalized.Clone(), nil
}

func (s *SessionStore) ToggleMetric(_ context.Context, sessionID, dimension, metric string) (fairness.Selection, bool, error) {
	defer observe("toggle_metric", time.Now())

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess := s.get(sh, sessionID)
	next := sess.selection.Clone()
	on, err := next.Toggle(dimension, metric)
	if err != nil {
		return nil, false, err
	}
	sess.selection = next
	return next.Clone(), on, nil
}

func (s *SessionStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

func (s *SessionStore) evictIdle() {
	cutoff := s.now().Add(-s.ttl)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.touched.Before(cutoff) {
				delete(sh.sessions, id)
			}
		}
		sh.mu.Unlock()
	}
}

func (s *SessionStore) updateMetrics() {
	total := 0
	for i, sh := range s.shards {
		sh.mu.RLock()
		n := len(sh.sessions)
		sh.mu.RUnlock()
		metrics.UpdateShardSessions("shard_"+strconv.Itoa(i), n)
		total += n
	}
	metrics.UpdateSessions(total)
}
