package outputusecase

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	outputerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/output/errors"
	sessionerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/session/errors"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
)

type Usecase struct {
	sessions sessionstore.Store
}

func NewUsecase(sessions sessionstore.Store) Usecase {
	return Usecase{
		sessions: sessions,
	}
}

// ResolveFile maps a session ID and filename to the artifact's absolute
// path. Both segments are validated against path traversal.
func (u Usecase) ResolveFile(sessionID string, filename string) (string, *api.Error) {
	sessionDir, err := u.sessions.Resolve(sessionID)
	if err != nil {
		err = errors.Wrap(err, "Failed to resolve the session for the file")
		switch {
		case markers.Is(err, sessionstore.BadIDMark):
			return "", api.CommitError(err,
				sessionerrors.BadSessionIDCode,
				"The session ID is not in a valid format")
		case markers.Is(err, sessionstore.NotFoundMark):
			return "", api.CommitError(err,
				sessionerrors.SessionNotFoundCode,
				"No session was found for this ID")
		default:
			return "", api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to resolve the session")
		}
	}

	if err := validateFilename(filename); err != nil {
		return "", api.CommitError(err,
			outputerrors.BadFilePathCode,
			"The file name is not in a valid format")
	}

	filePath := filepath.Join(sessionDir, filename)

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		notFoundErr := cerr.Fields(cerr.F{
			"session_id": sessionID,
			"filename":   filename,
		}).Error("No such file in the session")
		return "", api.CommitError(notFoundErr,
			outputerrors.FileNotFoundCode,
			"No file was found for this name")
	}

	return filePath, nil
}

func validateFilename(filename string) error {
	if filename == "" ||
		strings.ContainsAny(filename, "/\\") ||
		strings.Contains(filename, "..") ||
		filepath.Clean(filename) != filename {
		return cerr.Field("filename", filename).
			Error("File name contains unsafe characters")
	}

	return nil
}
