package separationerrors

import (
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
)

const (
	SeparationFailedCode = api.ErrorCode("separation_failed")
)
