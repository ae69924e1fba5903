package dummy

import (
	"context"
	"sync"

	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/engine"
)

var _ engine.Engine = &Engine{}

func NewDummyEngine(separateFunc func(inputPath string, outputDir string) (engine.StemFilePaths, error)) *Engine {
	return &Engine{
		SeparateFunc: separateFunc,
	}
}

// Engine stands in for the separation model binary. SeparateFunc fabricates
// the stem files that the real model would write.
type Engine struct {
	Unavailable  bool
	SeparateFunc func(inputPath string, outputDir string) (engine.StemFilePaths, error)

	mutex          sync.Mutex
	probeCount     int
	separateInputs []string
}

func (e *Engine) Probe(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.probeCount++

	if e.Unavailable {
		return Unavailable
	}

	return nil
}

func (e *Engine) Separate(ctx context.Context, inputPath string, outputDir string) (engine.StemFilePaths, error) {
	if e.Unavailable {
		return nil, Unavailable
	}

	e.mutex.Lock()
	e.separateInputs = append(e.separateInputs, inputPath)
	e.mutex.Unlock()

	return e.SeparateFunc(inputPath, outputDir)
}

func (e *Engine) ProbeCount() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.probeCount
}

func (e *Engine) SeparateInputs() []string {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return append([]string{}, e.separateInputs...)
}
