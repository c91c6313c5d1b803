package wasmbridge

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/module-bridge/bridge"
	"github.com/wippyai/module-bridge/graph"
)

// executorCell backs the host function the reflective module re-exports
// as "executor".
type executorCell struct {
	fn         bridge.Executor
	completion any
	mu         sync.Mutex
}

func (c *executorCell) store(fn bridge.Executor) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

func (c *executorCell) load() bridge.Executor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fn
}

func (c *executorCell) result() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completion
}

// call runs the executor from inside the facade's start function. Wasm
// start functions are synchronous, so an asynchronous completion is awaited
// here. Failures panic so wazero aborts the instantiation with the error.
func (c *executorCell) call(ctx context.Context, _ api.Module, _ []uint64) {
	fn := c.load()
	if fn == nil {
		return
	}
	v, err := fn(ctx)
	if err == nil {
		if aw, ok := v.(graph.Awaitable); ok {
			select {
			case <-aw.Done():
				v, err = aw.Result()
			case <-ctx.Done():
				err = ctx.Err()
			}
		}
	}
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.completion = v
	c.mu.Unlock()
}
