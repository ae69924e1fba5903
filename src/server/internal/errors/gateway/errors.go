package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-mixer-be/src/server/api_error"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	mixerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/mix/errors"
	outputerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/output/errors"
	separationerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/separation/errors"
	sessionerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/session/errors"
	uploaderrors "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/errors"
)

var httpStatusCodeMap = map[api.ErrorCode]int{
	api.DefaultErrorCode:                  http.StatusInternalServerError,
	sessionerrors.SessionNotFoundCode:     http.StatusNotFound,
	sessionerrors.BadSessionIDCode:        http.StatusBadRequest,
	uploaderrors.MissingAudioFileCode:     http.StatusBadRequest,
	uploaderrors.BadFilenameCode:          http.StatusBadRequest,
	uploaderrors.TranscodeFailedCode:      http.StatusInternalServerError,
	separationerrors.SeparationFailedCode: http.StatusInternalServerError,
	mixerrors.BadMixDataCode:              http.StatusBadRequest,
	mixerrors.NoAudibleTracksCode:         http.StatusBadRequest,
	mixerrors.NoStemSourcesCode:           http.StatusBadRequest,
	mixerrors.MixdownFailedCode:           http.StatusInternalServerError,
	outputerrors.FileNotFoundCode:         http.StatusNotFound,
	outputerrors.BadFilePathCode:          http.StatusBadRequest,
}

func ErrorResponse(c echo.Context, err *api.Error) error {
	statusCode, ok := httpStatusCodeMap[err.ErrorCode]
	if !ok {
		msg := fmt.Sprintf("Error code %s has no HTTP status code mapping", err.ErrorCode)
		panic(msg)
	}

	cerr.Log(err.InternalError)

	return c.JSON(statusCode, api_error.JSONAPIError{
		Code:  string(err.ErrorCode),
		Error: err.UserMessage,
	})
}
