package mixgateway

import (
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/gateway"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/request"
	mixerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/mix/errors"
	mixusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/mix/usecase"
	trackentity "github.com/veedubyou/stem-mixer-be/src/server/internal/track/entity"
)

const mixDownloadName = "mixed_audio.wav"

type Gateway struct {
	usecase mixusecase.Usecase
}

func NewGateway(usecase mixusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) ExportMix(c echo.Context) error {
	ctx := request.Context(c)

	spec := trackentity.MixSpec{}
	err := c.Bind(&spec)
	if err != nil {
		err = errors.Wrap(err, "Failed to bind request body to a mix spec")
		apiErr := api.CommitError(err,
			mixerrors.BadMixDataCode,
			"The export request data is malformed")
		return gateway.ErrorResponse(c, apiErr)
	}

	mixFilePath, cleanup, apiErr := g.usecase.ExportMix(ctx, spec)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to export mix")
		return gateway.ErrorResponse(c, apiErr)
	}

	// the rendered file is transient - remove it after delivery, whether
	// the transfer succeeded or not
	defer cleanup()

	return c.Attachment(mixFilePath, mixDownloadName)
}
