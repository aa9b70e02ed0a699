package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlog/internal/models"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/facebookgo/clock"
)

// Store is the mood record store the gate reads from and writes to.
//
// QueryLatest returns nil and no error when the user has no entries. Insert assigns the
// entry's id and createdAt and must not leave a partial row behind on failure.
type Store interface {
	QueryLatest(ctx context.Context, userID string) (*models.MoodEntry, error)
	Insert(ctx context.Context, entry *models.MoodEntry) (*models.MoodEntry, error)
}

// Options configures a [Gate]. Zero values are replaced with defaults by [New].
type Options struct {
	Clock         clock.Clock
	Location      *time.Location // default viewer time zone
	AutoSaveAfter time.Duration
	WriteTimeout  time.Duration // per auto-save write; 0 disables
	Logger        *log.Logger
}

// Gate creates check-in activations against a shared store.
//
// A gate keeps at most one unfinished activation per user: activating again disposes the
// previous one, so overlapping visits cannot arm two timers for the same day.
type Gate struct {
	store  Store
	clock  clock.Clock
	loc    *time.Location
	after  time.Duration
	wt     time.Duration
	logger *log.Logger

	mu    sync.Mutex
	live  map[string]*Activation // newest unfinished activation per user
	users map[string]*sync.Mutex // serializes one user's reads and writes
}

// New creates a [Gate] backed by store.
func New(store Store, opts Options) *Gate {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.AutoSaveAfter <= 0 {
		opts.AutoSaveAfter = shared.DefaultAutoSaveAfter
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Gate{
		store:  store,
		clock:  opts.Clock,
		loc:    opts.Location,
		after:  opts.AutoSaveAfter,
		wt:     opts.WriteTimeout,
		logger: opts.Logger,
		live:   make(map[string]*Activation),
		users:  make(map[string]*sync.Mutex),
	}
}

// Clock returns the clock driving the gate's timers.
func (g *Gate) Clock() clock.Clock { return g.clock }

// AutoSaveAfter returns the auto-save delay applied to armed activations.
func (g *Gate) AutoSaveAfter() time.Duration { return g.after }

// ActivationOption customizes a single [Activation].
type ActivationOption func(*Activation)

// InLocation evaluates "today" in loc instead of the gate's default zone.
func InLocation(loc *time.Location) ActivationOption {
	return func(a *Activation) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// Activate starts a fresh, unevaluated activation for userID, disposing any earlier
// activation of the same user that has not finished yet.
func (g *Gate) Activate(userID string, opts ...ActivationOption) *Activation {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Activation{
		id:     shared.GenerateID(),
		userID: userID,
		gate:   g,
		loc:    g.loc,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = shared.WithLogger(g.logger, "user", userID, "activation", a.id)

	g.mu.Lock()
	prev := g.live[userID]
	g.live[userID] = a
	g.mu.Unlock()
	context.AfterFunc(a.ctx, func() { g.forget(a) })

	if prev != nil && !prev.State().Terminal() {
		prev.logger.Info("superseded by a newer activation", "by", a.id)
		prev.Dispose()
	}
	return a
}

func (g *Gate) forget(a *Activation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.live[a.userID] == a {
		delete(g.live, a.userID)
	}
}

// lockUser holds userID's store lock until the returned func is called.
func (g *Gate) lockUser(userID string) func() {
	g.mu.Lock()
	l, ok := g.users[userID]
	if !ok {
		l = &sync.Mutex{}
		g.users[userID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Outcome summarizes how an activation ended, or where it currently stands.
type Outcome struct {
	Decision  Decision
	Entry     *models.MoodEntry // entry committed by this activation, or today's existing entry
	AutoSaved bool
	Err       error // auto-save failure for Failed activations
}

// Activation is one gate cycle for one user, typically one page visit or prompt.
//
// All methods are safe for concurrent use.
type Activation struct {
	id     string
	userID string
	gate   *Gate
	loc    *time.Location
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	evalMu sync.Mutex // serializes Evaluate

	mu         sync.Mutex
	state      State
	decision   Decision
	entry      *models.MoodEntry
	autoSaved  bool
	err        error
	timer      *clock.Timer
	autoSaveAt time.Time

	committed atomic.Bool // single-commit latch shared by Submit and the timer
	done      chan struct{}
	closeOnce sync.Once
}

func (a *Activation) ID() string               { return a.id }
func (a *Activation) UserID() string           { return a.userID }
func (a *Activation) Location() *time.Location { return a.loc }

// Done is closed once the caller may proceed past the gate, or the activation was disposed.
func (a *Activation) Done() <-chan struct{} { return a.done }

// State returns the current lifecycle state.
func (a *Activation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// AutoSaveAt is when the fallback write is scheduled. Zero unless the activation was armed.
func (a *Activation) AutoSaveAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.autoSaveAt
}

// Outcome returns a snapshot of the activation's result.
func (a *Activation) Outcome() Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Outcome{Decision: a.decision, Entry: a.entry, AutoSaved: a.autoSaved, Err: a.err}
}

// Wait blocks until [Activation.Done] is closed or ctx ends.
func (a *Activation) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-a.done:
		return a.Outcome(), nil
	case <-ctx.Done():
		return a.Outcome(), ctx.Err()
	}
}

// Evaluate decides whether the user still needs to check in today.
//
// The first successful call fixes the decision; later calls return it without touching the
// store. A read failure leaves the activation unevaluated so the caller can retry.
func (a *Activation) Evaluate(ctx context.Context) (Decision, error) {
	a.evalMu.Lock()
	defer a.evalMu.Unlock()

	a.mu.Lock()
	state, decision := a.state, a.decision
	a.mu.Unlock()

	switch state {
	case Unevaluated:
	case Disposed:
		if decision == Undecided {
			return Undecided, shared.ErrDisposed
		}
		return decision, nil
	default:
		return decision, nil
	}

	// Waits out a write still in flight from a superseded activation.
	unlock := a.gate.lockUser(a.userID)
	latest, err := a.gate.store.QueryLatest(ctx, a.userID)
	unlock()
	if err != nil {
		a.logger.Warn("failed to read latest mood entry", "err", err)
		return Undecided, fmt.Errorf("%w: %v", shared.ErrStoreRead, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == Disposed {
		return Undecided, shared.ErrDisposed
	}

	now := a.gate.clock.Now()
	if latest != nil && shared.SameDay(latest.CreatedAt(), now, a.loc) {
		a.decision = AlreadyCheckedIn
		a.state = CheckedIn
		a.entry = latest
		a.finish()
		a.logger.Debug("already checked in today", "entry", latest.ID())
		return a.decision, nil
	}

	a.decision = NeedsCheckIn
	a.state = Armed
	a.autoSaveAt = now.Add(a.gate.after)
	a.timer = a.gate.clock.AfterFunc(a.gate.after, a.autoSave)
	a.logger.Info("check-in armed", "auto_save_after", a.gate.after)
	return a.decision, nil
}

// Submit records the user's mood for today.
//
// mood is normalized against the label set before anything is written. A write failure
// releases the latch and keeps the activation armed so the user can retry.
func (a *Activation) Submit(ctx context.Context, mood models.Mood, note string) (*models.MoodEntry, error) {
	parsed, err := models.ParseMood(string(mood))
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	switch a.state {
	case Armed:
	case Disposed:
		a.mu.Unlock()
		return nil, shared.ErrDisposed
	case Settled:
		a.mu.Unlock()
		return nil, shared.ErrAlreadyCommitted
	default:
		state := a.state
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: activation is %s", shared.ErrNotArmed, state)
	}
	if !a.committed.CompareAndSwap(false, true) {
		a.mu.Unlock()
		return nil, shared.ErrAlreadyCommitted
	}
	a.mu.Unlock()

	wctx, cancel := a.writeContext(ctx, 0)
	defer cancel()

	unlock := a.gate.lockUser(a.userID)
	saved, err := a.gate.store.Insert(wctx, models.NewMoodEntry(a.userID, parsed, note))
	unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.committed.Store(false)
		a.logger.Warn("failed to save mood", "mood", parsed, "err", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
	}

	a.stopTimer()
	a.entry = saved
	if a.state == Armed {
		a.state = Settled
		a.finish()
	}
	a.logger.Info("mood saved", "mood", parsed, "entry", saved.ID())
	return saved, nil
}

// Dispose tears the activation down. A pending timer will never write afterwards.
//
// Calling Dispose on a finished activation does nothing.
func (a *Activation) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Terminal() {
		return
	}

	a.state = Disposed
	a.stopTimer()
	a.finish()
	a.logger.Debug("activation disposed")
}

// autoSave runs when the timer fires and writes the default mood unless a commit already happened.
func (a *Activation) autoSave() {
	a.mu.Lock()
	if a.state != Armed {
		a.mu.Unlock()
		return
	}
	if !a.committed.CompareAndSwap(false, true) {
		a.mu.Unlock()
		a.logger.Debug("auto-save skipped, submission in flight")
		return
	}
	a.mu.Unlock()

	ctx, cancel := a.writeContext(a.ctx, a.gate.wt)
	defer cancel()

	unlock := a.gate.lockUser(a.userID)
	saved, err := a.gate.store.Insert(ctx, models.NewAutoSavedEntry(a.userID))
	unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.committed.Store(false)
		a.logger.Error("auto-save failed", "err", err)
		if a.state == Armed {
			a.err = fmt.Errorf("%w: %v", shared.ErrStoreWrite, err)
			a.state = Failed
			a.finish()
		}
		return
	}

	a.entry = saved
	a.autoSaved = true
	if a.state == Armed {
		a.state = Settled
		a.finish()
	}
	a.logger.Info("mood auto-saved", "entry", saved.ID())
}

// writeContext derives a write context from parent that also ends when the activation is
// torn down, and after timeout when it is positive.
func (a *Activation) writeContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(a.ctx, cancel)

	if timeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, timeout)
		return tctx, func() { tcancel(); stop(); cancel() }
	}
	return ctx, func() { stop(); cancel() }
}

// stopTimer must be called with mu held.
func (a *Activation) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// finish must be called with mu held.
func (a *Activation) finish() {
	a.closeOnce.Do(func() {
		a.cancel()
		close(a.done)
	})
}
