package channel

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/aldermoor/swim/internal/member"
)

// ErrUnrouted is returned by Send when the destination never registered a
// handler. Dead members never route, so probing one surfaces this error
// and the caller resolves the probe through the failure path.
var ErrUnrouted = errors.New("channel: destination not routed")

// Network is a synchronous in-memory unary transport: Send dispatches the
// request directly to the destination's handler and returns its response.
type Network[RQ, RS any] struct {
	mu     sync.RWMutex
	routes map[member.ID]func(context.Context, RQ) (RS, error)
}

func NewNetwork[RQ, RS any]() *Network[RQ, RS] {
	return &Network[RQ, RS]{routes: make(map[member.ID]func(context.Context, RQ) (RS, error))}
}

// Route binds the handler that answers requests addressed to id.
func (n *Network[RQ, RS]) Route(id member.ID, handle func(context.Context, RQ) (RS, error)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[id] = handle
}

// Send delivers rq to the member addressed by to and returns its response.
func (n *Network[RQ, RS]) Send(ctx context.Context, to member.ID, rq RQ) (RS, error) {
	n.mu.RLock()
	handle, ok := n.routes[to]
	n.mu.RUnlock()
	if !ok {
		var zero RS
		return zero, ErrUnrouted
	}
	if err := ctx.Err(); err != nil {
		var zero RS
		return zero, err
	}
	return handle(ctx, rq)
}
