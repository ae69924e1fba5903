package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/executor"
)

// marks for callers to classify failures with markers.Is
var (
	BadFilenameMark     = errors.New("upload filename is not usable")
	TranscodeFailedMark = errors.New("transcoding process failed")
)

// CanonicalFileName is the fixed name of the normalized artifact within a
// session directory: stereo, 44.1 kHz, 16-bit PCM, regardless of what was
// uploaded.
const CanonicalFileName = "canonical.wav"

const (
	canonicalChannels   = "2"
	canonicalSampleRate = "44100"
	canonicalCodec      = "pcm_s16le"
)

// Normalizer persists an upload and transcodes it into the canonical format
// through a single ffmpeg invocation. Transcoding is deterministic for a
// given input, so failures are never retried.
type Normalizer struct {
	ffmpegBinPath string
	executor      executor.Executor
	timeout       time.Duration
}

func NewNormalizer(ffmpegBinPath string, executor executor.Executor, timeout time.Duration) Normalizer {
	return Normalizer{
		ffmpegBinPath: ffmpegBinPath,
		executor:      executor,
		timeout:       timeout,
	}
}

// Normalize writes the original upload into the session directory, produces
// the canonical artifact, and best-effort removes the original afterwards.
// Returns the canonical artifact's path.
func (n Normalizer) Normalize(ctx context.Context, sessionDir string, filename string, contents io.Reader) (string, error) {
	safeName, err := SanitizeFilename(filename)
	if err != nil {
		return "", cerr.Field("filename", filename).
			Wrap(err).Error("Upload filename could not be sanitized")
	}

	originalPath := filepath.Join(sessionDir, safeName)
	canonicalPath := filepath.Join(sessionDir, CanonicalFileName)

	errctx := cerr.Field("original_path", originalPath)

	if err := saveUpload(originalPath, contents); err != nil {
		return "", errctx.Wrap(err).Error("Failed to persist the original upload")
	}

	logger := log.WithFields(log.Fields{
		"original_path":  originalPath,
		"canonical_path": canonicalPath,
	})

	logger.Info("Transcoding upload to canonical format")

	if err := n.transcode(ctx, originalPath, canonicalPath); err != nil {
		return "", errctx.Wrap(err).Error("Failed to transcode the upload")
	}

	logger.Info("Finished transcoding upload")

	// the canonical artifact exists now, the original is only taking up space
	if err := os.Remove(originalPath); err != nil {
		logger.Warn("Failed to remove the original upload file")
	}

	return canonicalPath, nil
}

func (n Normalizer) transcode(ctx context.Context, originalPath string, canonicalPath string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", originalPath,
		"-ac", canonicalChannels,
		"-ar", canonicalSampleRate,
		"-acodec", canonicalCodec,
		canonicalPath,
	}

	errctx := cerr.Field("ffmpeg_bin_path", n.ffmpegBinPath).Field("ffmpeg_args", args)

	cmd := n.executor.Command(ctx, n.ffmpegBinPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		transcodeErr := errctx.Field("ffmpeg_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running ffmpeg: %s", string(output)))
		return errors.Mark(transcodeErr, TranscodeFailedMark)
	}

	return nil
}

func saveUpload(destPath string, contents io.Reader) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to create the upload destination file")
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, contents); err != nil {
		return cerr.Wrap(err).Error("Failed to write the upload contents")
	}

	return nil
}

// SanitizeFilename reduces the client-supplied name to a safe base name.
// Policy: sanitize rather than reject - path segments are stripped and unsafe
// characters substituted, and only a name with nothing salvageable fails.
func SanitizeFilename(filename string) (string, error) {
	baseName := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, baseName)

	if sanitized == "" || strings.Trim(sanitized, "._") == "" {
		badNameErr := cerr.Field("filename", filename).
			Error("Nothing usable remains of the filename after sanitizing")
		return "", errors.Mark(badNameErr, BadFilenameMark)
	}

	// don't let an upload named canonical.wav occupy the canonical artifact's path
	if sanitized == CanonicalFileName {
		sanitized = "original_" + sanitized
	}

	return sanitized, nil
}
