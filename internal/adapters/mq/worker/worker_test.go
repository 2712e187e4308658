package worker_test

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	worker "github.com/okian/casetag/internal/adapters/mq/worker"
	model "github.com/okian/casetag/internal/domain/model"
	"github.com/okian/casetag/internal/domain/taxonomy"
	logging "github.com/okian/casetag/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	if err := logging.Init(logging.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	goleak.VerifyTestMain(m)
}

// mockClassifier scripts per-case behaviour and tracks concurrency.
type mockClassifier struct {
	mu       sync.Mutex
	failures map[string][]model.FailureKind
	panics   map[string]bool
	calls    map[string]int
	delay    time.Duration
	wrongID  bool

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newMockClassifier() *mockClassifier {
	return &mockClassifier{
		failures: map[string][]model.FailureKind{},
		panics:   map[string]bool{},
		calls:    map[string]int{},
	}
}

func (m *mockClassifier) Classify(ctx context.Context, c model.Case, _ *taxonomy.Taxonomy) model.Record {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	attempt := m.calls[c.ID]
	m.calls[c.ID]++
	script := m.failures[c.ID]
	shouldPanic := m.panics[c.ID]
	m.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	if attempt < len(script) {
		return model.ErrorRecord(c.ID, script[attempt], "scripted")
	}
	rec := model.NewRecord(c.ID)
	if m.wrongID {
		rec.CaseID = "someone-else"
	}
	rec.Confidence = 0.9
	return rec
}

func (m *mockClassifier) callsFor(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func cases(ids ...string) []model.Case {
	out := make([]model.Case, len(ids))
	for i, id := range ids {
		out[i] = model.Case{ID: id, Narrative: "text " + id}
	}
	return out
}

func TestDispatch(t *testing.T) {
	convey.Convey("Given a pool with concurrency three", t, func() {
		mc := newMockClassifier()
		var slept []time.Duration
		var sleepMu sync.Mutex
		pool := worker.NewPool(mc,
			worker.WithConcurrency(3),
			worker.WithRetries(2, 10*time.Millisecond),
			worker.WithSleep(func(d time.Duration) {
				sleepMu.Lock()
				slept = append(slept, d)
				sleepMu.Unlock()
			}),
		)
		tx := taxonomy.Fallback()

		convey.Convey("When a batch of five is dispatched", func() {
			mc.delay = 20 * time.Millisecond
			records := pool.Dispatch(context.Background(), cases("a", "b", "c", "d", "e"), tx)

			convey.Convey("Then one record per case comes back in input order", func() {
				convey.So(records, convey.ShouldHaveLength, 5)
				for i, id := range []string{"a", "b", "c", "d", "e"} {
					convey.So(records[i].CaseID, convey.ShouldEqual, id)
				}
			})

			convey.Convey("Then no more than three calls were in flight", func() {
				convey.So(mc.peak.Load(), convey.ShouldBeLessThanOrEqualTo, 3)
				convey.So(mc.peak.Load(), convey.ShouldBeGreaterThan, 1)
			})
		})

		convey.Convey("When a classifier panics for one case", func() {
			mc.panics["b"] = true
			records := pool.Dispatch(context.Background(), cases("a", "b", "c"), tx)

			convey.Convey("Then that case gets an internal error record and the rest succeed", func() {
				convey.So(records[1].CaseID, convey.ShouldEqual, "b")
				convey.So(records[1].Failure, convey.ShouldEqual, model.FailureInternal)
				convey.So(records[0].IsError(), convey.ShouldBeFalse)
				convey.So(records[2].IsError(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a case is rate limited once", func() {
			mc.failures["a"] = []model.FailureKind{model.FailureRateLimited}
			records := pool.Dispatch(context.Background(), cases("a"), tx)

			convey.Convey("Then it is retried after a backoff and succeeds", func() {
				convey.So(records[0].IsError(), convey.ShouldBeFalse)
				convey.So(mc.callsFor("a"), convey.ShouldEqual, 2)
				convey.So(slept, convey.ShouldResemble, []time.Duration{10 * time.Millisecond})
			})
		})

		convey.Convey("When a case keeps hitting network errors", func() {
			mc.failures["a"] = []model.FailureKind{model.FailureNetwork, model.FailureNetwork, model.FailureNetwork, model.FailureNetwork}
			records := pool.Dispatch(context.Background(), cases("a"), tx)

			convey.Convey("Then retries stop at the limit with doubling backoff", func() {
				convey.So(records[0].Failure, convey.ShouldEqual, model.FailureNetwork)
				convey.So(mc.callsFor("a"), convey.ShouldEqual, 3)
				convey.So(slept, convey.ShouldResemble, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond})
			})
		})

		convey.Convey("When authentication fails", func() {
			mc.failures["a"] = []model.FailureKind{model.FailureAuthentication}
			records := pool.Dispatch(context.Background(), cases("a"), tx)

			convey.Convey("Then it is not retried", func() {
				convey.So(records[0].Failure, convey.ShouldEqual, model.FailureAuthentication)
				convey.So(mc.callsFor("a"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the classifier mislabels a record", func() {
			mc.wrongID = true
			records := pool.Dispatch(context.Background(), cases("x"), tx)

			convey.Convey("Then the record is keyed by the dispatched case", func() {
				convey.So(records[0].CaseID, convey.ShouldEqual, "x")
			})
		})

		convey.Convey("When the caller's context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			records := pool.Dispatch(ctx, cases("a", "b"), tx)

			convey.Convey("Then the batch still completes", func() {
				convey.So(records, convey.ShouldHaveLength, 2)
				convey.So(records[0].IsError(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the batch is empty", func() {
			convey.So(pool.Dispatch(context.Background(), nil, tx), convey.ShouldBeEmpty)
		})
	})
}
