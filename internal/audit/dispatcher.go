package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Kind names an audit event. Its value is the EventType written to sinks.
type Kind string

const (
	LoginSuccess        Kind = "login_success"
	LoginFailure        Kind = "login_failure"
	LogoutSession       Kind = "logout_session"
	AuthenticateFailure Kind = "authenticate_failure"
)

// Kinds lists the event kinds the engine emits.
func Kinds() []Kind {
	return []Kind{LoginSuccess, LoginFailure, LogoutSession, AuthenticateFailure}
}

// Sheddable reports whether a full buffer may drop events of this kind. Session
// lifecycle records are never shed; failures and unknown kinds are.
func (k Kind) Sheddable() bool {
	return k != LoginSuccess && k != LogoutSession
}

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds sheddable kinds when the buffer is full. Other kinds wait for
	// room until their context ends.
	DropIfFull bool
	// Now stamps events that arrive without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher hands audit events to a sink on one background goroutine.
type Dispatcher struct {
	sink Sink
	now  func() time.Time
	shed bool

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	idle   chan struct{}

	drops map[Kind]*atomic.Uint64
	other atomic.Uint64
}

// NewDispatcher starts a Dispatcher. It returns nil when cfg is disabled; every method
// of a nil Dispatcher is a no-op.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	d := &Dispatcher{
		sink:  sink,
		now:   now,
		shed:  cfg.DropIfFull,
		queue: make(chan Event, size),
		idle:  make(chan struct{}),
		drops: make(map[Kind]*atomic.Uint64, len(Kinds())),
	}
	for _, k := range Kinds() {
		d.drops[k] = new(atomic.Uint64)
	}

	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.idle)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit stamps and queues event. A sheddable kind is dropped when the buffer is full
// and DropIfFull is set; anything else waits for room and counts as dropped if ctx
// ends first. Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
	kind := Kind(event.EventType)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.shed && kind.Sheddable() {
		select {
		case d.queue <- event:
		default:
			d.countDrop(kind)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.countDrop(kind)
	}
}

func (d *Dispatcher) countDrop(k Kind) {
	if c, ok := d.drops[k]; ok {
		c.Add(1)
		return
	}
	d.other.Add(1)
}

// Close stops accepting events and returns once everything queued reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

// Dropped returns how many events of any kind were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	total := d.other.Load()
	for _, c := range d.drops {
		total += c.Load()
	}
	return total
}

// DroppedKind returns how many events of kind k were discarded. Unknown kinds are
// pooled and reported under any kind outside Kinds.
func (d *Dispatcher) DroppedKind(k Kind) uint64 {
	if d == nil {
		return 0
	}
	if c, ok := d.drops[k]; ok {
		return c.Load()
	}
	return d.other.Load()
}
