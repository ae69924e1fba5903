package dummy

import (
	"context"
	"sync"

	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/executor"
)

var _ executor.Executor = &Executor{}

// Invocation records one command run through the dummy executor.
type Invocation struct {
	Name string
	Args []string
	Dir  string
}

func NewDummyExecutor() *Executor {
	return &Executor{}
}

// Executor stands in for real binaries. Handler decides what each
// invocation produces; invocations are recorded for assertions.
type Executor struct {
	Unavailable bool
	Handler     func(inv Invocation) ([]byte, error)

	mutex       sync.Mutex
	invocations []Invocation
}

func (e *Executor) Command(ctx context.Context, name string, arg ...string) executor.Command {
	return &dummyCommand{
		executor: e,
		invocation: Invocation{
			Name: name,
			Args: arg,
		},
	}
}

func (e *Executor) Invocations() []Invocation {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]Invocation{}, e.invocations...)
}

func (e *Executor) record(inv Invocation) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.invocations = append(e.invocations, inv)
}

type dummyCommand struct {
	executor   *Executor
	invocation Invocation
}

func (d *dummyCommand) SetDir(dir string) {
	d.invocation.Dir = dir
}

func (d *dummyCommand) CombinedOutput() ([]byte, error) {
	if d.executor.Unavailable {
		return nil, Unavailable
	}

	d.executor.record(d.invocation)

	if d.executor.Handler == nil {
		return []byte{}, nil
	}

	return d.executor.Handler(d.invocation)
}
