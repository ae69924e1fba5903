package engine

import (
	"context"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// StemFilePaths maps a stem name to the file the model produced for it.
type StemFilePaths = map[string]string

// Engine runs a pretrained source separation model over a waveform file and
// writes one waveform file per stem into the output directory.
//
//counterfeiter:generate . Engine
type Engine interface {
	// Probe verifies that the engine is able to run at all, so that a broken
	// installation surfaces at startup rather than on the first upload.
	Probe(ctx context.Context) error
	Separate(ctx context.Context, inputPath string, outputDir string) (StemFilePaths, error)
}
