package model

import (
	"context"
	"sync"

	"github.com/apex/log"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/engine"
	"golang.org/x/sync/semaphore"
)

// Service owns the separation model's lifecycle. The model is probed lazily
// on first use, concurrent inferences are bounded by a weighted semaphore
// since each one is CPU and memory hungry, and Close refuses further work.
type Service struct {
	engine engine.Engine
	slots  *semaphore.Weighted

	initOnce sync.Once
	initErr  error

	mu     sync.Mutex
	closed bool
}

func NewService(engine engine.Engine, maxConcurrent int64) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Service{
		engine: engine,
		slots:  semaphore.NewWeighted(maxConcurrent),
	}
}

func (s *Service) Separate(ctx context.Context, inputPath string, outputDir string) (engine.StemFilePaths, error) {
	if err := s.init(ctx); err != nil {
		return nil, cerr.Wrap(err).Error("Separation model failed to initialize")
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, cerr.Wrap(err).Error("Gave up waiting for a model slot")
	}
	defer s.slots.Release(1)

	if s.isClosed() {
		return nil, cerr.Error("Model service has been shut down")
	}

	return s.engine.Separate(ctx, inputPath, outputDir)
}

func (s *Service) init(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.isClosed() {
			s.initErr = cerr.Error("Model service has been shut down")
			return
		}

		log.Info("Probing separation model")
		s.initErr = s.engine.Probe(ctx)
	})

	return s.initErr
}

func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
