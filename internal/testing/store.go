package testing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/facebookgo/clock"
)

// MockStore is an in-memory mood store with injectable failures.
//
// Inserts are stamped with the store's clock, so a [clock.Mock] controls createdAt.
type MockStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries []*models.MoodEntry
	seq     int

	readErr  error
	writeErr error
	reads    int
	inserts  int

	hold    chan struct{}
	started chan struct{}
}

func NewMockStore(c clock.Clock) *MockStore {
	if c == nil {
		c = clock.New()
	}
	return &MockStore{clock: c}
}

// Seed stores an entry with an explicit createdAt, bypassing failure injection.
func (m *MockStore) Seed(userID string, mood models.Mood, note string, createdAt time.Time) *models.MoodEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	entry := models.NewMoodEntry(userID, mood, note)
	entry.Stamp(shared.GenerateID(), m.seq, createdAt.UTC())
	m.entries = append(m.entries, entry)
	return entry
}

// SetReadErr makes every QueryLatest fail with err until cleared with nil.
func (m *MockStore) SetReadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteErr makes every Insert fail with err until cleared with nil.
func (m *MockStore) SetWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// HoldInserts blocks subsequent Inserts until release is called.
//
// started receives once per Insert that reaches the hold.
func (m *MockStore) HoldInserts() (started <-chan struct{}, release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hold := make(chan struct{})
	m.hold = hold
	m.started = make(chan struct{}, 16)

	var once sync.Once
	return m.started, func() {
		once.Do(func() {
			m.mu.Lock()
			m.hold = nil
			m.mu.Unlock()
			close(hold)
		})
	}
}

func (m *MockStore) QueryLatest(ctx context.Context, userID string) (*models.MoodEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}

	var latest *models.MoodEntry
	for _, e := range m.entries {
		if e.UserID() != userID || e.Deleted() {
			continue
		}
		if latest == nil || e.CreatedAt().After(latest.CreatedAt()) ||
			(e.CreatedAt().Equal(latest.CreatedAt()) && e.Sequence() > latest.Sequence()) {
			latest = e
		}
	}
	return latest, nil
}

func (m *MockStore) Insert(ctx context.Context, entry *models.MoodEntry) (*models.MoodEntry, error) {
	m.mu.Lock()
	hold, started := m.hold, m.started
	m.mu.Unlock()

	if hold != nil {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if m.writeErr != nil {
		return nil, m.writeErr
	}

	m.seq++
	entry.Stamp(shared.GenerateID(), m.seq, m.clock.Now().UTC())
	m.entries = append(m.entries, entry)
	return entry, nil
}

// Entries returns userID's stored entries, oldest first.
func (m *MockStore) Entries(userID string) []*models.MoodEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.MoodEntry
	for _, e := range m.entries {
		if e.UserID() == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence() < out[j].Sequence() })
	return out
}

// Reads is the number of QueryLatest calls.
func (m *MockStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Inserts is the number of Insert calls that reached the write, failed or not.
func (m *MockStore) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}
