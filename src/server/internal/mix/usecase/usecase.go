package mixusecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/mix"
	mixerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/mix/errors"
	sessionerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/session/errors"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
	trackentity "github.com/veedubyou/stem-mixer-be/src/server/internal/track/entity"
)

type Usecase struct {
	sessions sessionstore.Store
	renderer mix.Renderer
}

func NewUsecase(sessions sessionstore.Store, renderer mix.Renderer) Usecase {
	return Usecase{
		sessions: sessions,
		renderer: renderer,
	}
}

// ExportMix renders the client's mix spec into a combined waveform file and
// returns its path with a cleanup function that the caller must invoke once
// the file has been delivered.
func (u Usecase) ExportMix(ctx context.Context, spec trackentity.MixSpec) (string, func(), *api.Error) {
	if apiErr := validateSpec(spec); apiErr != nil {
		return "", nil, apiErr
	}

	sessionDir, err := u.sessions.Resolve(spec.SessionPath)
	if err != nil {
		err = errors.Wrap(err, "Failed to resolve the session for the mix")
		switch {
		case markers.Is(err, sessionstore.BadIDMark):
			return "", nil, api.CommitError(err,
				sessionerrors.BadSessionIDCode,
				"The session ID is not in a valid format")
		case markers.Is(err, sessionstore.NotFoundMark):
			return "", nil, api.CommitError(err,
				sessionerrors.SessionNotFoundCode,
				"No session was found for this ID")
		default:
			return "", nil, api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to resolve the session")
		}
	}

	audible := AudibleTracks(spec.Tracks, spec.SoloTrack)
	if len(audible) == 0 {
		err := cerr.Field("session_id", spec.SessionPath).
			Error("No audible tracks to export")
		return "", nil, api.CommitError(err,
			mixerrors.NoAudibleTracksCode,
			"No audible tracks to export")
	}

	renderTracks := resolveStemFiles(sessionDir, audible)
	if len(renderTracks) == 0 {
		err := cerr.Field("session_id", spec.SessionPath).
			Error("None of the audible tracks have a backing stem file")
		return "", nil, api.CommitError(err,
			mixerrors.NoStemSourcesCode,
			"The source files for the audible tracks could not be found")
	}

	outputPath, err := u.renderer.Render(ctx, sessionDir, renderTracks)
	if err != nil {
		err = errors.Wrap(err, "Failed to render the mixdown")
		return "", nil, api.CommitError(err,
			mixerrors.MixdownFailedCode,
			"Failed to export the mix")
	}

	cleanup := func() {
		if err := os.Remove(outputPath); err != nil {
			log.WithField("output_path", outputPath).
				Warn("Failed to remove the rendered mix file")
		}
	}

	return outputPath, cleanup, nil
}

// AudibleTracks applies the audibility rules: with a solo selector, only
// tracks matching the selector with positive volume are audible - mute is
// ignored. Without one, a track is audible when it isn't muted and has
// positive volume.
func AudibleTracks(tracks []trackentity.TrackDescriptor, soloTrack string) []trackentity.TrackDescriptor {
	audible := []trackentity.TrackDescriptor{}

	for _, track := range tracks {
		if soloTrack != "" {
			if track.Name == soloTrack && track.Gain() > 0 {
				audible = append(audible, track)
			}
			continue
		}

		if !track.Mute && track.Gain() > 0 {
			audible = append(audible, track)
		}
	}

	return audible
}

// resolveStemFiles maps audible tracks to their backing stem files. A track
// whose stem file is missing is skipped with a warning rather than failing
// the whole render.
func resolveStemFiles(sessionDir string, audible []trackentity.TrackDescriptor) []mix.AudibleTrack {
	renderTracks := []mix.AudibleTrack{}

	for _, track := range audible {
		stemPath := filepath.Join(sessionDir, trackentity.StemFileName(track.Name))

		if _, err := os.Stat(stemPath); err != nil {
			log.WithFields(log.Fields{
				"track_name": track.Name,
				"stem_path":  stemPath,
			}).Warn("Stem file not found, skipping track in the mix")
			continue
		}

		renderTracks = append(renderTracks, mix.AudibleTrack{
			FilePath: stemPath,
			Gain:     track.Gain(),
		})
	}

	return renderTracks
}

func validateSpec(spec trackentity.MixSpec) *api.Error {
	badData := func(err error) *api.Error {
		return api.CommitError(err,
			mixerrors.BadMixDataCode,
			"The export request data is malformed")
	}

	if spec.SessionPath == "" {
		return badData(cerr.Error("Export request is missing the session path"))
	}

	if len(spec.Tracks) == 0 {
		return badData(cerr.Error("Export request has no tracks"))
	}

	for _, track := range spec.Tracks {
		if track.Name == "" {
			return badData(cerr.Error("Export request has a track without a name"))
		}

		if track.Gain() < 0 {
			return badData(cerr.Field("track_name", track.Name).
				Error("Track volume must not be negative"))
		}
	}

	return nil
}
