package sessionerrors

import (
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
)

const (
	SessionNotFoundCode = api.ErrorCode("session_not_found")
	BadSessionIDCode    = api.ErrorCode("bad_session_id")
)
