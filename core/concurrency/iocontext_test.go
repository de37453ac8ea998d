package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostNeverRunsInline(t *testing.T) {
	c := NewIOContext()
	ran := false
	c.Post(func() { ran = true })
	assert.False(t, ran)
	assert.Equal(t, 1, c.Stats().Queued)

	assert.Equal(t, 1, c.Run())
	assert.True(t, ran)
	assert.True(t, c.Stopped(), "context stops when it runs out of work")
}

func TestRunIsFIFO(t *testing.T) {
	c := NewIOContext()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		c.Post(func() { order = append(order, i) })
	}
	assert.Equal(t, 5, c.Run())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPollAndRestart(t *testing.T) {
	c := NewIOContext()
	assert.Equal(t, 0, c.Poll())
	assert.True(t, c.Stopped())

	c.Restart()
	c.Post(func() {})
	c.Post(func() {})
	assert.Equal(t, 1, c.PollOne())
	assert.Equal(t, 1, c.Poll())
}

func TestHandlerPostingHandler(t *testing.T) {
	c := NewIOContext()
	depth := 0
	var step func()
	step = func() {
		depth++
		if depth < 3 {
			c.Post(step)
		}
	}
	c.Post(step)
	assert.Equal(t, 3, c.Run())
}

func TestWorkGuardKeepsRunAlive(t *testing.T) {
	c := NewIOContext()
	g := MakeWorkGuard(c.Executor())
	assert.True(t, g.OwnsWork())

	done := make(chan int, 1)
	go func() { done <- c.Run() }()

	select {
	case <-done:
		t.Fatal("Run returned while work was guarded")
	case <-time.After(20 * time.Millisecond):
	}

	var ran atomic.Bool
	c.Post(func() { ran.Store(true) })
	g.Reset()
	g.Reset()
	assert.False(t, g.OwnsWork())

	select {
	case n := <-done:
		assert.Equal(t, 1, n)
		assert.True(t, ran.Load())
	case <-time.After(time.Second):
		t.Fatal("Run did not return after guard reset")
	}
}

func TestStopInterruptsRun(t *testing.T) {
	c := NewIOContext()
	g := MakeWorkGuard(c.Executor())
	defer g.Reset()

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()
	c.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not interrupt Run")
	}
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	c := NewIOContext()
	c.Post(func() { panic("boom") })
	ran := false
	c.Post(func() { ran = true })
	assert.Equal(t, 2, c.Run())
	assert.True(t, ran)
	assert.Equal(t, uint64(1), c.Stats().Panics)
}

func TestRunNMultipleRunners(t *testing.T) {
	c := NewIOContext()
	g := MakeWorkGuard(c.Executor())

	const tasks = 1000
	var wg sync.WaitGroup
	var sum atomic.Int64
	wg.Add(tasks)
	for i := 1; i <= tasks; i++ {
		v := int64(i)
		c.Post(func() {
			sum.Add(v)
			wg.Done()
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.RunN(ctx, 4) }()

	wg.Wait()
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, int64(tasks*(tasks+1)/2), sum.Load())
	g.Reset()
}

func TestShutdownDropsQueuedAndStopsServices(t *testing.T) {
	c := NewIOContext()
	var stopped []string
	require.NoError(t, AddService(c, &namedService{"first", &stopped}))
	UseService(c, func(*IOContext) *otherService { return &otherService{&stopped} })

	ran := false
	c.Post(func() { ran = true })
	c.Shutdown()
	c.Shutdown()

	assert.Equal(t, []string{"second", "first"}, stopped)
	c.Restart()
	c.Post(func() { ran = true })
	assert.Equal(t, 0, c.Run())
	assert.False(t, ran)
}

type namedService struct {
	name string
	log  *[]string
}

func (s *namedService) Shutdown() { *s.log = append(*s.log, s.name) }

type otherService struct{ log *[]string }

func (s *otherService) Shutdown() { *s.log = append(*s.log, "second") }

func TestServiceRegistry(t *testing.T) {
	c := NewIOContext()
	assert.False(t, HasService[*namedService](c))

	calls := 0
	factory := func(*IOContext) *namedService {
		calls++
		return &namedService{name: "x", log: new([]string)}
	}
	a := UseService(c, factory)
	b := UseService(c, factory)
	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
	assert.True(t, HasService[*namedService](c))
	assert.ErrorIs(t, AddService(c, &namedService{}), ErrServiceExists)
}

func TestExecutorEquality(t *testing.T) {
	c1, c2 := NewIOContext(), NewIOContext()
	assert.True(t, c1.Executor().Equal(c1.Executor()))
	assert.False(t, c1.Executor().Equal(c2.Executor()))
	assert.Same(t, c1, c1.Executor().Context())
}
