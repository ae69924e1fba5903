package uploadgateway

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/gateway"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/request"
	uploaderrors "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/errors"
	uploadusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/usecase"
)

// AudioFormField is the multipart form field that carries the upload.
const AudioFormField = "audio"

type Gateway struct {
	usecase uploadusecase.Usecase
}

func NewGateway(usecase uploadusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) UploadAudio(c echo.Context) error {
	ctx := request.Context(c)

	fileHeader, err := c.FormFile(AudioFormField)
	if err != nil {
		err = errors.Wrap(err, "No audio file attached to the request")
		apiErr := api.CommitError(err,
			uploaderrors.MissingAudioFileCode,
			"No audio file was attached to the upload")
		return gateway.ErrorResponse(c, apiErr)
	}

	if fileHeader.Filename == "" {
		err := errors.New("The uploaded file has no name")
		apiErr := api.CommitError(err,
			uploaderrors.BadFilenameCode,
			"The uploaded file has no name")
		return gateway.ErrorResponse(c, apiErr)
	}

	file, err := fileHeader.Open()
	if err != nil {
		err = errors.Wrap(err, "Failed to open the uploaded file")
		apiErr := api.CommitError(err,
			api.DefaultErrorCode,
			"Unknown error: Failed to read the uploaded file")
		return gateway.ErrorResponse(c, apiErr)
	}
	defer file.Close()

	result, apiErr := g.usecase.ProcessUpload(ctx, fileHeader.Filename, file)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to process the uploaded audio")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.JSON(http.StatusOK, result)
}
