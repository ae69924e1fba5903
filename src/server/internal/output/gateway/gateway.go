package outputgateway

import (
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/gateway"
	outputusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/output/usecase"
)

type Gateway struct {
	usecase outputusecase.Usecase
}

func NewGateway(usecase outputusecase.Usecase) Gateway {
	return Gateway{
		usecase: usecase,
	}
}

func (g Gateway) GetFile(c echo.Context, sessionID string, filename string) error {
	filePath, apiErr := g.usecase.ResolveFile(sessionID, filename)
	if apiErr != nil {
		return gateway.ErrorResponse(c, apiErr)
	}

	return c.File(filePath)
}
