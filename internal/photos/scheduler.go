package photos

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trailblaze/fieldops/internal/config"
	"github.com/trailblaze/fieldops/internal/observability"
)

// Loader fetches one photo. The URL already carries the cache-busting value.
type Loader interface {
	Load(ctx context.Context, url string) (*Image, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, url string) (*Image, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (*Image, error) { return f(ctx, url) }

// Policy is the retry budget and pacing of one kind of photo surface.
type Policy struct {
	Name        string
	Attempts    int           // total attempts, first one included
	BackoffUnit time.Duration // wait before retry n is n × unit
	Gap         time.Duration // pause after an item settles, before the next starts
}

// Backoff is the wait before the retry that follows the given attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * p.BackoffUnit
}

// InlinePolicy paces thumbnails rendered inside a sheet.
func InlinePolicy(c config.PhotoConfig) Policy {
	return Policy{Name: "inline", Attempts: c.InlineAttempts, BackoffUnit: c.BackoffUnit, Gap: c.QueueGap}
}

// GalleryPolicy paces the "view all photos" gallery: fewer attempts and a
// wider stagger between consecutive starts.
func GalleryPolicy(c config.PhotoConfig) Policy {
	return Policy{Name: "gallery", Attempts: c.GalleryAttempts, BackoffUnit: c.BackoffUnit, Gap: c.GalleryStagger}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger for attempt and outcome lines.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithSleep replaces the real timer, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// WithClock replaces time.Now for cache-busting values.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithContext bounds every load; cancelling it fails whatever is left.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) { s.ctx = ctx }
}

// WithManualAttempts sets the budget used by Retry.
func WithManualAttempts(n int) Option {
	return func(s *Scheduler) { s.manualAttempts = n }
}

// Scheduler loads refs strictly one at a time in enqueue order. Manual
// retries run beside the queue and never take its slot.
type Scheduler struct {
	loader         Loader
	policy         Policy
	manualAttempts int
	logger         logrus.FieldLogger
	sleep          SleepFunc
	now            func() time.Time
	ctx            context.Context

	mu          sync.Mutex
	queue       []*PhotoRef
	inFlight    bool
	outstanding int
	idle        chan struct{}
}

// NewScheduler builds a scheduler for one policy.
func NewScheduler(loader Loader, policy Policy, opts ...Option) *Scheduler {
	s := &Scheduler{
		loader:         loader,
		policy:         policy,
		manualAttempts: 2,
		logger:         logrus.StandardLogger(),
		sleep:          sleepContext,
		now:            time.Now,
		ctx:            context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the scheduler's queue policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// Enqueue appends refs to the pending queue. It never interrupts the item in
// flight and does not start anything; call RunQueue for that. Only Pending
// refs that are not queued yet are taken; a settled ref stays settled.
func (s *Scheduler) Enqueue(refs ...*PhotoRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		ref.mu.Lock()
		if ref.state != Pending || ref.queued {
			ref.mu.Unlock()
			continue
		}
		ref.queued = true
		ref.retriesLeft = s.policy.Attempts - 1
		ref.mu.Unlock()
		s.queue = append(s.queue, ref)
		s.addLocked(1)
	}
	observability.SetPhotoQueueDepth(len(s.queue))
}

// Pending is the number of refs waiting behind the in-flight one.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Busy reports whether a queue item is in flight.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// RunQueue starts the head of the queue unless a load is already in flight.
// It returns immediately; the queue keeps draining on its own.
func (s *Scheduler) RunQueue() {
	s.mu.Lock()
	if s.inFlight || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	ref := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	s.inFlight = true
	observability.SetPhotoQueueDepth(len(s.queue))
	s.mu.Unlock()

	ref.begin(s.policy.Attempts)
	go s.drain(ref)
}

func (s *Scheduler) drain(ref *PhotoRef) {
	s.resolve(ref, s.policy.Attempts)
	_ = s.sleep(s.ctx, s.policy.Gap)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()

	s.RunQueue()
	s.done()
}

// Retry restarts a Failed ref with the manual budget, outside the queue.
func (s *Scheduler) Retry(ref *PhotoRef) error {
	if ref == nil {
		return ErrNotFailed
	}
	s.mu.Lock()
	s.addLocked(1)
	s.mu.Unlock()

	if !ref.restart(s.manualAttempts) {
		s.done()
		return ErrNotFailed
	}
	go func() {
		defer s.done()
		s.resolve(ref, s.manualAttempts)
	}()
	return nil
}

// Wait blocks until every enqueued or retried ref is settled and the queue
// is empty, or until ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.outstanding == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolve runs the attempts of one ref until it settles.
func (s *Scheduler) resolve(ref *PhotoRef, budget int) {
	log := s.logger.WithFields(logrus.Fields{"photo": ref.URL, "policy": s.policy.Name})
	for {
		attempt := ref.recordAttempt()
		img, err := s.loader.Load(s.ctx, CacheBust(ref.URL, s.now(), attempt))
		observability.RecordPhotoAttempt(err == nil)
		if err == nil {
			if img != nil && img.URL == "" {
				img.URL = ref.URL
			}
			snap, p := ref.succeed(img)
			log.WithField("attempt", attempt).Debug("photo loaded")
			observability.RecordPhotoTerminal(Loaded.String())
			notify(p, snap)
			return
		}

		log.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "budget": budget}).Debug("photo attempt failed")
		if !ref.consumeRetry(err) {
			s.settleFailed(ref, err, log)
			return
		}
		if serr := s.sleep(s.ctx, s.policy.Backoff(attempt)); serr != nil {
			s.settleFailed(ref, serr, log)
			return
		}
	}
}

func (s *Scheduler) settleFailed(ref *PhotoRef, err error, log logrus.FieldLogger) {
	snap, p := ref.fail(err)
	log.WithError(snap.Err).Warn("photo failed")
	observability.RecordPhotoTerminal(Failed.String())
	notify(p, snap)
}

func notify(p Placeholder, snap Snapshot) {
	if p == nil || !p.Attached() {
		return
	}
	switch snap.State {
	case Loaded:
		p.ShowLoaded(snap)
	case Failed:
		p.ShowFailed(snap)
	}
}

func (s *Scheduler) addLocked(n int) {
	if s.outstanding == 0 {
		s.idle = make(chan struct{})
	}
	s.outstanding += n
}

func (s *Scheduler) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding--
	if s.outstanding == 0 {
		close(s.idle)
	}
}

// CacheBust appends cb=<unix-millis>-<attempt> so retries bypass caches.
func CacheBust(raw string, now time.Time, attempt int) string {
	value := fmt.Sprintf("%d-%d", now.UnixMilli(), attempt)
	u, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + "cb=" + value
	}
	q := u.Query()
	q.Set("cb", value)
	u.RawQuery = q.Encode()
	return u.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
