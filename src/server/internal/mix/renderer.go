package mix

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/executor"
)

// mark for callers to classify failures with markers.Is
var RenderFailedMark = errors.New("mixdown process failed")

// AudibleTrack is one mix input that survived the audibility rules: a
// backing stem file and the linear gain to apply to it.
type AudibleTrack struct {
	FilePath string
	Gain     float64
}

// Renderer combines audible stems into a single waveform with one ffmpeg
// invocation: a volume filter per input, then an amix with a "longest"
// duration policy so shorter stems are zero-padded rather than truncating
// the result.
type Renderer struct {
	ffmpegBinPath string
	executor      executor.Executor
	timeout       time.Duration
}

func NewRenderer(ffmpegBinPath string, executor executor.Executor, timeout time.Duration) Renderer {
	return Renderer{
		ffmpegBinPath: ffmpegBinPath,
		executor:      executor,
		timeout:       timeout,
	}
}

// Render writes the combined waveform to a uniquely named file in the
// session directory, so concurrent exports against one session can never
// observe each other's partial writes. Returns the rendered file's path;
// the caller owns its deletion.
func (r Renderer) Render(ctx context.Context, sessionDir string, tracks []AudibleTrack) (string, error) {
	if len(tracks) == 0 {
		return "", cerr.Error("No tracks were given to render")
	}

	outputPath := filepath.Join(sessionDir, fmt.Sprintf("final_mix_%s.wav", uuid.New().String()))

	args := []string{"-y"}
	for _, track := range tracks {
		args = append(args, "-i", track.FilePath)
	}

	filterParts := make([]string, 0, len(tracks))
	streamSpecifiers := strings.Builder{}
	for i, track := range tracks {
		gain := strconv.FormatFloat(track.Gain, 'f', -1, 64)
		filterParts = append(filterParts, fmt.Sprintf("[%d:a]volume=%s[a%d]", i, gain, i))
		fmt.Fprintf(&streamSpecifiers, "[a%d]", i)
	}

	filterComplex := fmt.Sprintf("%s;%samix=inputs=%d:duration=longest[aout]",
		strings.Join(filterParts, ";"),
		streamSpecifiers.String(),
		len(tracks))

	args = append(args, "-filter_complex", filterComplex, "-map", "[aout]", outputPath)

	logger := log.WithFields(log.Fields{
		"output_path":    outputPath,
		"filter_complex": filterComplex,
	})

	logger.Info("Running ffmpeg mixdown command")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	errctx := cerr.Field("ffmpeg_bin_path", r.ffmpegBinPath).Field("ffmpeg_args", args)

	cmd := r.executor.Command(ctx, r.ffmpegBinPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		renderErr := errctx.Field("ffmpeg_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running ffmpeg: %s", string(output)))
		return "", errors.Mark(renderErr, RenderFailedMark)
	}

	logger.Info("Finished ffmpeg mixdown command")

	return outputPath, nil
}
