package photos

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trailblaze/fieldops/internal/config"
	"github.com/trailblaze/fieldops/internal/logging"
)

type fakeLoader struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   []string

	active    int32
	maxActive int32
}

func newFakeLoader(failing ...string) *fakeLoader {
	f := &fakeLoader{failing: map[string]bool{}}
	for _, u := range failing {
		f.failing[u] = true
	}
	return f
}

func (f *fakeLoader) Load(ctx context.Context, raw string) (*Image, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		max := atomic.LoadInt32(&f.maxActive)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxActive, max, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	base := strings.SplitN(raw, "?", 2)[0]
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, raw)
	if f.failing[base] {
		return nil, errors.New("503 service unavailable")
	}
	return &Image{Format: "png", Width: 1, Height: 1}, nil
}

func (f *fakeLoader) setFailing(u string, failing bool) {
	f.mu.Lock()
	f.failing[u] = failing
	f.mu.Unlock()
}

func (f *fakeLoader) callsFor(u string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, u+"?") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeLoader) bases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, strings.SplitN(c, "?", 2)[0])
	}
	return out
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.waits...)
}

type fakePlaceholder struct {
	attached atomic.Bool
	loaded   atomic.Int32
	failed   atomic.Int32
}

func (p *fakePlaceholder) Attached() bool        { return p.attached.Load() }
func (p *fakePlaceholder) ShowLoaded(_ Snapshot) { p.loaded.Add(1) }
func (p *fakePlaceholder) ShowFailed(_ Snapshot) { p.failed.Add(1) }

func testPolicy() Policy {
	return InlinePolicy(config.Default().Photos)
}

func newTestScheduler(loader Loader, policy Policy, rec *sleepRecorder, opts ...Option) *Scheduler {
	base := []Option{
		WithSleep(rec.sleep),
		WithLogger(logging.Discard()),
		WithManualAttempts(config.Default().Photos.ManualAttempts),
	}
	return NewScheduler(loader, policy, append(base, opts...)...)
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
}

func photoURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "http://photos.test/p" + string(rune('1'+i)) + ".jpg"
	}
	return urls
}

func TestSchedulerLoadsOneAtATimeAndRetriesFailures(t *testing.T) {
	urls := photoURLs(5)
	loader := newFakeLoader(urls[1], urls[3])
	rec := &sleepRecorder{}
	s := newTestScheduler(loader, testPolicy(), rec)

	refs := Refs(urls...)
	s.Enqueue(refs...)
	s.RunQueue()
	waitIdle(t, s)

	for _, i := range []int{0, 2, 4} {
		snap := refs[i].Snapshot()
		require.Equal(t, Loaded, snap.State, urls[i])
		require.Equal(t, 1, snap.Attempts, urls[i])
		require.NoError(t, snap.Err)
	}
	for _, i := range []int{1, 3} {
		snap := refs[i].Snapshot()
		require.Equal(t, Failed, snap.State, urls[i])
		require.Equal(t, 3, snap.Attempts, urls[i])
		require.Equal(t, 0, snap.RetriesLeft)
		require.ErrorIs(t, snap.Err, ErrImageResolution)
	}

	require.EqualValues(t, 1, atomic.LoadInt32(&loader.maxActive))
	require.Equal(t, []string{
		urls[0],
		urls[1], urls[1], urls[1],
		urls[2],
		urls[3], urls[3], urls[3],
		urls[4],
	}, loader.bases())

	gap := 200 * time.Millisecond
	require.Equal(t, []time.Duration{
		gap,
		time.Second, 2 * time.Second, gap,
		gap,
		time.Second, 2 * time.Second, gap,
		gap,
	}, rec.recorded())
}

func TestEnqueueDoesNotStartLoading(t *testing.T) {
	loader := newFakeLoader()
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	refs := Refs(photoURLs(3)...)
	s.Enqueue(refs...)

	require.Equal(t, 3, s.Pending())
	require.False(t, s.Busy())
	for _, ref := range refs {
		require.Equal(t, Pending, ref.State())
		require.Equal(t, 2, ref.Snapshot().RetriesLeft)
	}
	require.Empty(t, loader.bases())
}

func TestRunQueueIsNoOpWhileLoading(t *testing.T) {
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	var calls atomic.Int32
	loader := LoaderFunc(func(ctx context.Context, url string) (*Image, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return &Image{}, nil
	})
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	refs := Refs(photoURLs(2)...)
	s.Enqueue(refs...)
	s.RunQueue()
	<-entered

	s.RunQueue()
	s.RunQueue()
	require.True(t, s.Busy())
	require.Equal(t, 1, s.Pending())
	require.Equal(t, Loading, refs[0].State())
	require.Equal(t, Pending, refs[1].State())
	require.EqualValues(t, 1, calls.Load())

	close(release)
	waitIdle(t, s)
	require.Equal(t, Loaded, refs[0].State())
	require.Equal(t, Loaded, refs[1].State())
	require.EqualValues(t, 2, calls.Load())
}

func TestItemsEnqueuedMidFlightAreDrained(t *testing.T) {
	release := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, url string) (*Image, error) {
		<-release
		return &Image{}, nil
	})
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	first := NewRef("http://photos.test/a.jpg", nil)
	late := NewRef("http://photos.test/b.jpg", nil)
	s.Enqueue(first)
	s.RunQueue()
	s.Enqueue(late)
	close(release)

	waitIdle(t, s)
	require.Equal(t, Loaded, first.State())
	require.Equal(t, Loaded, late.State())
}

func TestManualRetryRecoversWithoutTouchingSiblings(t *testing.T) {
	urls := photoURLs(3)
	loader := newFakeLoader(urls[1], urls[2])
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	refs := Refs(urls...)
	s.Enqueue(refs...)
	s.RunQueue()
	waitIdle(t, s)
	require.Equal(t, Failed, refs[1].State())
	require.Equal(t, Failed, refs[2].State())

	loader.setFailing(urls[1], false)
	require.NoError(t, s.Retry(refs[1]))
	waitIdle(t, s)

	snap := refs[1].Snapshot()
	require.Equal(t, Loaded, snap.State)
	require.Equal(t, 1, snap.Attempts)
	require.Equal(t, Loaded, refs[0].State())
	require.Equal(t, Failed, refs[2].State())
	require.Equal(t, 3, refs[2].Snapshot().Attempts)

	require.ErrorIs(t, s.Retry(refs[0]), ErrNotFailed)
	require.ErrorIs(t, s.Retry(nil), ErrNotFailed)
}

func TestManualRetryUsesItsOwnBudget(t *testing.T) {
	url := "http://photos.test/broken.jpg"
	loader := newFakeLoader(url)
	rec := &sleepRecorder{}
	s := newTestScheduler(loader, testPolicy(), rec)

	ref := NewRef(url, nil)
	s.Enqueue(ref)
	s.RunQueue()
	waitIdle(t, s)
	require.Len(t, loader.callsFor(url), 3)

	require.NoError(t, s.Retry(ref))
	require.Equal(t, Loading, ref.State())
	waitIdle(t, s)

	snap := ref.Snapshot()
	require.Equal(t, Failed, snap.State)
	require.Equal(t, 2, snap.Attempts)
	require.Len(t, loader.callsFor(url), 5)
}

func TestGalleryPolicyBudget(t *testing.T) {
	url := "http://photos.test/gallery.jpg"
	loader := newFakeLoader(url)
	rec := &sleepRecorder{}
	policy := GalleryPolicy(config.Default().Photos)
	s := newTestScheduler(loader, policy, rec)

	ref := NewRef(url, nil)
	s.Enqueue(ref)
	s.RunQueue()
	waitIdle(t, s)

	require.Equal(t, Failed, ref.State())
	require.Equal(t, 2, ref.Snapshot().Attempts)
	require.Equal(t, []time.Duration{time.Second, 300 * time.Millisecond}, rec.recorded())
}

func TestCacheBustingDiffersPerAttempt(t *testing.T) {
	url := "http://photos.test/flaky.jpg"
	loader := newFakeLoader(url)
	var tick atomic.Int64
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_000 + tick.Add(1)) }
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{}, WithClock(clock))

	ref := NewRef(url, nil)
	s.Enqueue(ref)
	s.RunQueue()
	waitIdle(t, s)

	calls := loader.callsFor(url)
	require.Len(t, calls, 3)
	seen := map[string]bool{}
	for i, c := range calls {
		require.Contains(t, c, "cb=")
		require.True(t, strings.HasSuffix(c, "-"+string(rune('1'+i))), c)
		seen[c] = true
	}
	require.Len(t, seen, 3)
}

func TestCacheBust(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	require.Equal(t,
		"http://photos.test/a.jpg?cb=1700000000000-2&size=s",
		CacheBust("http://photos.test/a.jpg?size=s", now, 2))
	require.Equal(t,
		"/rest/photos/view/x.png?cb=1700000000000-1",
		CacheBust("/rest/photos/view/x.png", now, 1))
	require.Equal(t,
		"http://photos.test/a.jpg?cb=1700000000000-3",
		CacheBust("http://photos.test/a.jpg?cb=old", now, 3))
}

func TestBackoffIsLinear(t *testing.T) {
	p := Policy{BackoffUnit: time.Second}
	require.Equal(t, time.Second, p.Backoff(1))
	require.Equal(t, 2*time.Second, p.Backoff(2))
	require.Equal(t, 3*time.Second, p.Backoff(3))
	require.Equal(t, time.Second, p.Backoff(0))
}

func TestDetachedPlaceholderGetsNoCallbacks(t *testing.T) {
	urls := photoURLs(2)
	loader := newFakeLoader(urls[1])
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	attached := &fakePlaceholder{}
	attached.attached.Store(true)
	detached := &fakePlaceholder{}

	okAttached := NewRef(urls[0], attached)
	failAttached := NewRef(urls[1], attached)
	okDetached := NewRef(urls[0], detached)
	failDetached := NewRef(urls[1], detached)

	s.Enqueue(okAttached, failAttached, okDetached, failDetached)
	s.RunQueue()
	waitIdle(t, s)

	require.EqualValues(t, 1, attached.loaded.Load())
	require.EqualValues(t, 1, attached.failed.Load())
	require.EqualValues(t, 0, detached.loaded.Load())
	require.EqualValues(t, 0, detached.failed.Load())

	require.Equal(t, Loaded, okDetached.State())
	require.Equal(t, Failed, failDetached.State())
}

func TestCancelledContextFailsRemainingRefs(t *testing.T) {
	url := "http://photos.test/slow.jpg"
	loader := newFakeLoader(url)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{}, WithContext(ctx))

	ref := NewRef(url, nil)
	s.Enqueue(ref)
	s.RunQueue()
	waitIdle(t, s)

	snap := ref.Snapshot()
	require.Equal(t, Failed, snap.State)
	require.Equal(t, 1, snap.Attempts)
	require.ErrorIs(t, snap.Err, context.Canceled)
}

func TestWaitReturnsImmediatelyWhenIdle(t *testing.T) {
	s := newTestScheduler(newFakeLoader(), testPolicy(), &sleepRecorder{})
	require.NoError(t, s.Wait(context.Background()))
}

func TestWaitHonoursContext(t *testing.T) {
	s := newTestScheduler(newFakeLoader(), testPolicy(), &sleepRecorder{})
	s.Enqueue(NewRef("http://photos.test/never.jpg", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestEnqueueTakesEachPendingRefOnce(t *testing.T) {
	urls := photoURLs(2)
	loader := newFakeLoader()
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	ref := NewRef(urls[0], nil)
	s.Enqueue(ref, ref)
	s.Enqueue(ref)
	require.Equal(t, 1, s.Pending())

	s.RunQueue()
	waitIdle(t, s)
	require.Equal(t, Loaded, ref.State())
	require.Len(t, loader.callsFor(urls[0]), 1)

	s.Enqueue(ref, NewRef(urls[1], nil))
	require.Equal(t, 1, s.Pending())
	require.Equal(t, Loaded, ref.State())

	s.RunQueue()
	waitIdle(t, s)
	require.Len(t, loader.callsFor(urls[0]), 1)
	require.Len(t, loader.callsFor(urls[1]), 1)
}

func TestEnqueueKeepsFailedRefFailed(t *testing.T) {
	url := "http://photos.test/gone.jpg"
	loader := newFakeLoader(url)
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	ref := NewRef(url, nil)
	s.Enqueue(ref)
	s.RunQueue()
	waitIdle(t, s)
	require.Equal(t, Failed, ref.State())

	s.Enqueue(ref)
	require.Zero(t, s.Pending())
	require.Equal(t, Failed, ref.State())
	require.Len(t, loader.callsFor(url), 3)
}

func TestConcurrentRetriesStartOneLoad(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	loader := LoaderFunc(func(ctx context.Context, _ string) (*Image, error) {
		if calls.Add(1) > 3 {
			<-release
		}
		return nil, errors.New("503 service unavailable")
	})
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	ref := NewRef("http://photos.test/broken.jpg", nil)
	s.Enqueue(ref)
	s.RunQueue()
	waitIdle(t, s)
	require.EqualValues(t, 3, calls.Load())

	var (
		wg      sync.WaitGroup
		started atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Retry(ref) == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)
	waitIdle(t, s)

	require.EqualValues(t, 1, started.Load())
	require.EqualValues(t, 5, calls.Load())
	require.Equal(t, Failed, ref.State())
}
