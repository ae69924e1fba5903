package separation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/wavlib"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/working_dir"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/model"
	trackentity "github.com/veedubyou/stem-mixer-be/src/server/internal/track/entity"
)

// Orchestrator runs the separation model over a canonical artifact and
// persists the resulting stems into the session directory.
//
// The model wants zero-mean/unit-variance input, so the waveform is
// normalized by the mean and standard deviation of its down-mixed signal
// before inference, and every stem is denormalized by the same statistics
// afterwards - output loudness tracks the original recording.
type Orchestrator struct {
	model      *model.Service
	workingDir working_dir.WorkingDir
	timeout    time.Duration
}

func NewOrchestrator(model *model.Service, workingDir working_dir.WorkingDir, timeout time.Duration) Orchestrator {
	return Orchestrator{
		model:      model,
		workingDir: workingDir,
		timeout:    timeout,
	}
}

// SeparateTrack produces one persisted stem file per model source and
// returns the stems in conventional model order with session-scoped URLs.
// Stem persistence is all-or-nothing: a failed write removes the stems
// already written for this request.
func (o Orchestrator) SeparateTrack(ctx context.Context, sessionID string, sessionDir string, canonicalPath string) ([]trackentity.Stem, error) {
	errctx := cerr.Fields(cerr.F{
		"session_id":     sessionID,
		"canonical_path": canonicalPath,
	})

	canonical, err := wavlib.ReadFile(canonicalPath)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to read the canonical artifact")
	}

	mean, std := wavlib.MeanStd(canonical.Downmix())
	if std == 0 {
		// silent input, normalize by identity instead of dividing by zero
		std = 1
	}

	tempDir, cleanupTempDir, err := o.makeTempDir()
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to make a temp dir for separation")
	}
	defer cleanupTempDir()

	normalizedPath := filepath.Join(tempDir, "normalized.wav")
	normalized := scaleWaveform(canonical, func(sample float64) float64 {
		return (sample - mean) / std
	})

	// float32 carries the normalized samples that integer PCM would clip
	if err := wavlib.WriteFloat32File(normalizedPath, normalized); err != nil {
		return nil, errctx.Wrap(err).Error("Failed to write the normalized model input")
	}

	log.WithFields(log.Fields{
		"session_id": sessionID,
		"mean":       mean,
		"std":        std,
	}).Info("Running separation model")

	inferenceCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stemFilePaths, err := o.model.Separate(inferenceCtx, normalizedPath, filepath.Join(tempDir, "stems"))
	if err != nil {
		return nil, errctx.Wrap(err).Error("Separation model failed")
	}

	stems, err := persistStems(sessionID, sessionDir, stemFilePaths, mean, std)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to persist the separated stems")
	}

	return stems, nil
}

func persistStems(sessionID string, sessionDir string, stemFilePaths map[string]string, mean float64, std float64) ([]trackentity.Stem, error) {
	stemNames := make([]string, 0, len(stemFilePaths))
	for stemName := range stemFilePaths {
		stemNames = append(stemNames, stemName)
	}
	trackentity.SortStemNames(stemNames)

	stems := []trackentity.Stem{}
	persistedPaths := []string{}

	removePersisted := func() {
		for _, path := range persistedPaths {
			if err := os.Remove(path); err != nil {
				log.WithField("stem_path", path).
					Warn("Failed to remove a partially persisted stem")
			}
		}
	}

	for _, stemName := range stemNames {
		errctx := cerr.Field("stem_name", stemName)

		stemWaveform, err := wavlib.ReadFile(stemFilePaths[stemName])
		if err != nil {
			removePersisted()
			return nil, errctx.Wrap(err).Error("Failed to read a model output stem")
		}

		denormalized := scaleWaveform(stemWaveform, func(sample float64) float64 {
			return sample*std + mean
		})

		stemFileName := trackentity.StemFileName(stemName)
		stemPath := filepath.Join(sessionDir, stemFileName)

		if err := wavlib.WritePCM16File(stemPath, denormalized); err != nil {
			removePersisted()
			return nil, errctx.Wrap(err).Error("Failed to write a stem into the session")
		}

		persistedPaths = append(persistedPaths, stemPath)

		stems = append(stems, trackentity.Stem{
			Name: trackentity.DisplayName(stemName),
			URL:  fmt.Sprintf("/output/%s/%s", sessionID, stemFileName),
		})
	}

	return stems, nil
}

func scaleWaveform(waveform wavlib.Waveform, scale func(float64) float64) wavlib.Waveform {
	scaledChannels := make([][]float64, len(waveform.Channels))
	for c, channel := range waveform.Channels {
		scaledChannels[c] = make([]float64, len(channel))
		for i, sample := range channel {
			scaledChannels[c][i] = scale(sample)
		}
	}

	return wavlib.Waveform{
		SampleRate: waveform.SampleRate,
		Channels:   scaledChannels,
	}
}

func (o Orchestrator) makeTempDir() (string, func(), error) {
	tempDir, err := os.MkdirTemp(o.workingDir.TempDir(), "separation-*")
	if err != nil {
		return "", nil, cerr.Field("temp_dir", o.workingDir.TempDir()).
			Wrap(err).Error("Failed to create temp dir for separation artifacts")
	}

	tempDir, err = filepath.Abs(tempDir)
	if err != nil {
		return "", nil, cerr.Field("temp_dir", tempDir).
			Wrap(err).Error("Failed to turn temp dir into absolute format")
	}

	return tempDir, func() { os.RemoveAll(tempDir) }, nil
}
