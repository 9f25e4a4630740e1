package binlogstream

import "context"

// DefaultCapacity is the default number of decoded events buffered between
// the producer and the caller.
const DefaultCapacity = 100

// relayItem is either a decoded event or, when err is set, the terminal
// error marker. end is the stream offset just past the event.
type relayItem[E any] struct {
	event E
	end   int64
	err   error
}

// relay is a bounded FIFO between exactly one producer and one consumer.
// The producer closes it when it exits; nothing is sent after an error marker.
type relay[E any] struct {
	items chan relayItem[E]
}

func newRelay[E any](capacity int) *relay[E] {
	return &relay[E]{items: make(chan relayItem[E], capacity)}
}

// put blocks while the relay is full.
func (r *relay[E]) put(ctx context.Context, item relayItem[E]) error {
	select {
	case r.items <- item:
		return nil
	default:
	}

	select {
	case r.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get blocks until an item arrives or the relay is closed and drained (ok == false).
func (r *relay[E]) get(ctx context.Context) (item relayItem[E], ok bool, err error) {
	select {
	case item, ok = <-r.items:
		return item, ok, nil
	case <-ctx.Done():
		return item, false, ctx.Err()
	}
}

// close must only be called by the producer.
func (r *relay[E]) close() {
	close(r.items)
}

func (r *relay[E]) len() int {
	return len(r.items)
}

func (r *relay[E]) cap() int {
	return cap(r.items)
}
