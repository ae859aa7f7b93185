package scenario

import (
    "context"
    "sync"

    "github.com/clusterlab/sentinel-harness/pkg/timeline"
)

// Subscribe returns a channel of timeline events published live during
// runs. The channel is buffered and closed when ctx is done. Events may be
// dropped if the consumer is too slow (best-effort delivery) to avoid
// back-pressuring the runner.
func (r *Runner) Subscribe(ctx context.Context) <-chan timeline.Event {
    ch := make(chan timeline.Event, 64)
    r.eb.add(ch)
    go func() {
        <-ctx.Done()
        r.eb.remove(ch)
        close(ch)
    }()
    return ch
}

// internal event bus
type eventBus struct {
    mu   sync.Mutex
    subs map[chan timeline.Event]struct{}
}

func (e *eventBus) add(ch chan timeline.Event) {
    e.mu.Lock()
    if e.subs == nil { e.subs = make(map[chan timeline.Event]struct{}) }
    e.subs[ch] = struct{}{}
    e.mu.Unlock()
}

func (e *eventBus) remove(ch chan timeline.Event) {
    e.mu.Lock()
    if e.subs != nil { delete(e.subs, ch) }
    e.mu.Unlock()
}

func (e *eventBus) publish(ev timeline.Event) {
    e.mu.Lock()
    for ch := range e.subs {
        select {
        case ch <- ev:
        default:
            // drop if receiver is slow
        }
    }
    e.mu.Unlock()
}
