package report

import (
	"context"
	"log/slog"
	"sync"

	"github.com/myrjola/coachreports/internal/errors"
)

// Fetcher loads the raw report records of a user. A nil Start or End means that side is unbounded.
type Fetcher interface {
	FetchRecords(ctx context.Context, userID int, dates DateRange) ([]RawRecord, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, userID int, dates DateRange) ([]RawRecord, error)

func (f FetcherFunc) FetchRecords(ctx context.Context, userID int, dates DateRange) ([]RawRecord, error) {
	return f(ctx, userID, dates)
}

// State is a snapshot of the report screen.
type State struct {
	Trainer   bool
	UserID    int
	HasUser   bool
	Dates     DateRange
	Datasets  Datasets
	Loading   bool
	Selection Selection
}

// Viewer derives the viewer kind of the snapshot.
func (s State) Viewer() Viewer {
	return ViewerFor(s.Trainer, s.HasUser, s.Dates)
}

// Visibility decides what the area of chart c shows. Chart areas on screen are always enabled; the selection only
// affects what goes into a mailed report.
func (s State) Visibility(c Chart) Decision {
	return Resolve(VisibilityInput{
		Viewer:   s.Viewer(),
		Presence: s.Datasets.Get(c).Presence(),
		Enabled:  true,
	})
}

// Region implements [RegionSource] over the snapshot.
func (s State) Region(id string) (Region, bool) {
	spec, ok := lookupRegion(id)
	if !ok {
		return Region{}, false
	}
	return BuildRegion(id, s.Datasets.Get(spec.chart), s.Visibility(spec.chart))
}

// ControllerConfig wires a [Controller].
type ControllerConfig struct {
	Fetcher  Fetcher
	Notifier Notifier
	Logger   *slog.Logger
	// Trainer selects the trainer view. Clients always look at themselves.
	Trainer bool
	// FetchOpenRange also fetches when neither date bound is set, meaning all time. Clients use it for their
	// initial view.
	FetchOpenRange bool
	// OnChange receives every new snapshot in order. It may read the controller but must not change it.
	OnChange func(State)
}

// Controller owns the report screen state and keeps it in sync with the fetch target.
//
// Every change of user or date range issues a new request and supersedes the previous one: its context is
// cancelled and its late result is discarded, so the datasets always correspond to the latest target.
type Controller struct {
	fetcher        Fetcher
	notifier       Notifier
	logger         *slog.Logger
	fetchOpenRange bool
	onChange       func(State)

	mu        sync.Mutex
	state     State
	requestID uint64
	version   uint64
	cancel    context.CancelFunc
	closed    bool

	publishMu     sync.Mutex
	lastPublished uint64

	ctx  context.Context //nolint:containedctx // lifetime of the controller.
	stop context.CancelFunc
	wg   sync.WaitGroup
}

type fetchRequest struct {
	ctx    context.Context //nolint:containedctx // scoped to one request.
	id     uint64
	userID int
	dates  DateRange
}

// NewController returns a controller with every chart selected and nothing fetched.
func NewController(cfg ControllerConfig) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Controller{
		fetcher:        cfg.Fetcher,
		notifier:       notifier,
		logger:         logger,
		fetchOpenRange: cfg.FetchOpenRange,
		onChange:       cfg.OnChange,
		state: State{
			Trainer:   cfg.Trainer,
			Selection: SelectAllCharts(),
		},
		ctx:  ctx,
		stop: stop,
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Region implements [RegionSource] over the current snapshot.
func (c *Controller) Region(id string) (Region, bool) {
	return c.State().Region(id)
}

// Visibility decides what the area of chart ch currently shows.
func (c *Controller) Visibility(ch Chart) Decision {
	return c.State().Visibility(ch)
}

// SetUser targets userID and fetches when the date range allows it.
func (c *Controller) SetUser(userID int) {
	c.retarget(func(s *State) {
		s.UserID = userID
		s.HasUser = true
	})
}

// ClearUser drops the target user and its data.
func (c *Controller) ClearUser() {
	c.retarget(func(s *State) {
		s.UserID = 0
		s.HasUser = false
	})
}

// SetDateRange changes the date range. A range with a missing bound is still being picked: it does not fetch and
// invalidates any request in flight.
func (c *Controller) SetDateRange(dates DateRange) {
	c.retarget(func(s *State) {
		s.Dates = dates
	})
}

// SetTarget changes user and date range in one step, issuing at most one request.
func (c *Controller) SetTarget(userID int, dates DateRange) {
	c.retarget(func(s *State) {
		s.UserID = userID
		s.HasUser = true
		s.Dates = dates
	})
}

// Toggle flips chart ch in the selection.
func (c *Controller) Toggle(ch Chart) {
	c.updateSelection(func(s Selection) Selection { return s.Toggle(ch) })
}

// SelectAll enables every chart.
func (c *Controller) SelectAll() {
	c.updateSelection(func(Selection) Selection { return SelectAllCharts() })
}

// ClearAll disables every chart.
func (c *Controller) ClearAll() {
	c.updateSelection(func(Selection) Selection { return Selection{} })
}

// SetSelection replaces the selection.
func (c *Controller) SetSelection(sel Selection) {
	c.updateSelection(func(Selection) Selection { return sel })
}

// Selection returns a copy of the current selection.
func (c *Controller) Selection() Selection {
	return c.State().Selection
}

// AllChecked reports whether every chart is selected.
func (c *Controller) AllChecked() bool {
	return c.Selection().AllChecked()
}

// Indeterminate reports whether some but not all charts are selected.
func (c *Controller) Indeterminate() bool {
	return c.Selection().Indeterminate()
}

// Close cancels the request in flight and waits for it to finish. Later calls are no-ops and no snapshot is
// published after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	c.stop()
	c.wg.Wait()
	// Wait out a publish that started before closing.
	c.publishMu.Lock()
	c.publishMu.Unlock() //nolint:staticcheck // empty critical section is a barrier.
}

func (c *Controller) shouldFetch(s State) bool {
	if !s.HasUser {
		return false
	}
	return s.Dates.Complete() || (c.fetchOpenRange && s.Dates.Open())
}

func (c *Controller) retarget(mutate func(*State)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	mutate(&c.state)
	c.requestID++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	var req *fetchRequest
	if c.shouldFetch(c.state) {
		ctx, cancel := context.WithCancel(c.ctx)
		c.cancel = cancel
		req = &fetchRequest{ctx: ctx, id: c.requestID, userID: c.state.UserID, dates: c.state.Dates}
		c.state.Loading = true
		c.wg.Add(1)
	} else {
		c.state.Loading = false
		c.state.Datasets = Datasets{}
	}
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snapshot, version)
	if req != nil {
		go c.fetch(req)
	}
}

func (c *Controller) fetch(req *fetchRequest) {
	defer c.wg.Done()
	logger := c.logger.With(slog.Uint64("requestID", req.id), slog.Int("userID", req.userID),
		slog.String("dates", req.dates.String()))

	records, err := c.fetchRecords(req)
	var datasets Datasets
	if err == nil {
		datasets = Classify(records)
	}

	c.mu.Lock()
	if c.closed || req.id != c.requestID {
		c.mu.Unlock()
		logger.LogAttrs(req.ctx, slog.LevelDebug, "discarding superseded report data")
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Loading = false
	c.state.Datasets = datasets
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		logger.LogAttrs(c.ctx, slog.LevelError, "failed to fetch report data", errors.SlogError(err))
		c.notifier.Notify(c.ctx, errorNotification("Could not load the report data. Please try again."))
	}
	c.publish(snapshot, version)
}

func (c *Controller) fetchRecords(req *fetchRequest) (records []RawRecord, err error) {
	defer func() {
		if excp := recover(); excp != nil {
			err = errors.Wrap(errors.DecoratePanic(excp), "fetch records")
		}
	}()
	if records, err = c.fetcher.FetchRecords(req.ctx, req.userID, req.dates); err != nil {
		return nil, errors.Wrap(err, "fetch records")
	}
	return records, nil
}

func (c *Controller) updateSelection(f func(Selection) Selection) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Selection = f(c.state.Selection)
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snapshot, version)
}

func (c *Controller) snapshotLocked() (State, uint64) {
	c.version++
	return c.state, c.version
}

// publish hands snapshots to OnChange in version order, dropping ones overtaken by a newer snapshot.
func (c *Controller) publish(s State, version uint64) {
	if c.onChange == nil {
		return
	}
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if version <= c.lastPublished {
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.lastPublished = version
	c.onChange(s)
}
