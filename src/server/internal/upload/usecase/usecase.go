package uploadusecase

import (
	"context"
	"io"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/ingest"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation"
	separationerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/separation/errors"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
	trackentity "github.com/veedubyou/stem-mixer-be/src/server/internal/track/entity"
	uploaderrors "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/errors"
)

// UploadResult is what the client needs to drive a mixer UI: the stems
// produced by separation and the session ID that scopes them.
type UploadResult struct {
	Tracks      []trackentity.Stem `json:"tracks"`
	SessionPath string             `json:"path"`
}

type Usecase struct {
	sessions     sessionstore.Store
	normalizer   ingest.Normalizer
	orchestrator separation.Orchestrator
}

func NewUsecase(
	sessions sessionstore.Store,
	normalizer ingest.Normalizer,
	orchestrator separation.Orchestrator,
) Usecase {
	return Usecase{
		sessions:     sessions,
		normalizer:   normalizer,
		orchestrator: orchestrator,
	}
}

// ProcessUpload runs the full pipeline for one upload: create a session,
// normalize the audio into the canonical format, and separate it into stems.
// The whole pipeline runs within the caller's request.
func (u Usecase) ProcessUpload(ctx context.Context, filename string, contents io.Reader) (UploadResult, *api.Error) {
	sessionID, sessionDir, err := u.sessions.Create()
	if err != nil {
		err = errors.Wrap(err, "Failed to create a session for the upload")
		return UploadResult{}, api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to create a session")
	}

	logger := log.WithFields(log.Fields{
		"session_id": sessionID,
		"filename":   filename,
	})

	logger.Info("Processing upload")

	canonicalPath, err := u.normalizer.Normalize(ctx, sessionDir, filename, contents)
	if err != nil {
		u.discardSession(sessionID)

		err = errors.Wrap(err, "Failed to normalize the upload")
		switch {
		case markers.Is(err, ingest.BadFilenameMark):
			return UploadResult{}, api.CommitError(err,
				uploaderrors.BadFilenameCode,
				"The uploaded file's name could not be used")
		case markers.Is(err, ingest.TranscodeFailedMark):
			return UploadResult{}, api.CommitError(err,
				uploaderrors.TranscodeFailedCode,
				"The uploaded file could not be converted - it may not be a supported audio format")
		default:
			return UploadResult{}, api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to normalize the upload")
		}
	}

	stems, err := u.orchestrator.SeparateTrack(ctx, sessionID, sessionDir, canonicalPath)
	if err != nil {
		u.discardSession(sessionID)

		err = errors.Wrap(err, "Failed to separate the upload into stems")
		return UploadResult{}, api.CommitError(err,
			separationerrors.SeparationFailedCode,
			"The audio could not be separated into stems")
	}

	logger.Info("Finished processing upload")

	return UploadResult{
		Tracks:      stems,
		SessionPath: sessionID,
	}, nil
}

// a session with no stems is useless to the client, reclaim it right away
// instead of waiting for the reaper
func (u Usecase) discardSession(sessionID string) {
	if err := u.sessions.Delete(sessionID); err != nil {
		log.WithField("session_id", sessionID).
			Warn("Failed to discard the session after a pipeline failure")
	}
}
