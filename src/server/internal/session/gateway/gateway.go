package sessiongateway

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/gateway"
	sessionusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/session/usecase"
)

type Gateway struct {
	usecase sessionusecase.Usecase
}

func NewGateway(usecase sessionusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) DeleteSession(c echo.Context, sessionID string) error {
	apiErr := g.usecase.DeleteSession(sessionID)
	if apiErr != nil {
		apiErr = api.WrapError(apiErr, "Failed to delete session")
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.NoContent(http.StatusNoContent)
}
