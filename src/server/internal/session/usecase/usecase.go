package sessionusecase

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/markers"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	sessionerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/session/errors"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
)

type Usecase struct {
	store sessionstore.Store
}

func NewUsecase(store sessionstore.Store) Usecase {
	return Usecase{
		store: store,
	}
}

func (u Usecase) DeleteSession(sessionID string) *api.Error {
	err := u.store.Delete(sessionID)
	if err != nil {
		err = errors.Wrap(err, "Failed to delete session")
		switch {
		case markers.Is(err, sessionstore.BadIDMark):
			return api.CommitError(err,
				sessionerrors.BadSessionIDCode,
				"The session ID is not in a valid format")
		case markers.Is(err, sessionstore.NotFoundMark):
			return api.CommitError(err,
				sessionerrors.SessionNotFoundCode,
				"No session was found for this ID")
		default:
			return api.CommitError(err,
				api.DefaultErrorCode,
				"Unknown error: Failed to delete the session")
		}
	}

	return nil
}
