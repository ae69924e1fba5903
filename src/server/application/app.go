package application

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/ingest"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/executor"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/working_dir"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/mix"
	mixgateway "github.com/veedubyou/stem-mixer-be/src/server/internal/mix/gateway"
	mixusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/mix/usecase"
	outputgateway "github.com/veedubyou/stem-mixer-be/src/server/internal/output/gateway"
	outputusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/output/usecase"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/engine"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/model"
	sessiongateway "github.com/veedubyou/stem-mixer-be/src/server/internal/session/gateway"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/session/reaper"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
	sessionusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/session/usecase"
	uploadgateway "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/gateway"
	uploadusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/usecase"
	"github.com/veedubyou/stem-mixer-be/src/shared/config"
)

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
)

type App struct {
	echo   *echo.Echo
	port   string
	reaper *reaper.Reaper
	model  *model.Service
}

type Config struct {
	FFmpegBinPath      string
	DemucsBinPath      string
	SessionsDirPath    string
	WorkDirPath        string
	Engine             config.Engine
	CORSAllowedOrigins []string
	Port               string
	Log                bool
}

func NewApp(config Config) App {
	e := echo.New()

	if config.Log {
		e.Use(middleware.Logger())
	}

	corsMiddleware := makeCorsMiddleware(config)

	handleRoute := func(method HTTPMethod, path string, handlerFunc echo.HandlerFunc) {
		params := func() (string, echo.HandlerFunc, echo.MiddlewareFunc) {
			return path, handlerFunc, corsMiddleware
		}

		e.OPTIONS(params())

		switch method {
		case GET:
			e.GET(params())
		case POST:
			e.POST(params())
		case PUT:
			e.PUT(params())
		case DELETE:
			e.DELETE(params())
		default:
			panic("unhandled http method!")
		}
	}

	binExecutor := executor.BinaryFileExecutor{}
	sessionStore := makeSessionStore(config)
	workingDir := makeWorkingDir(config)
	modelService := makeModelService(config, workingDir, binExecutor)
	sessionReaper := reaper.NewReaper(sessionStore, config.Engine.ReapInterval)

	uploadGateway := makeUploadGateway(config, sessionStore, modelService, workingDir, binExecutor)
	mixGateway := makeMixGateway(config, sessionStore, binExecutor)
	outputGateway := makeOutputGateway(sessionStore)
	sessionGateway := makeSessionGateway(sessionStore)

	// health check
	handleRoute(GET, "/health-check", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// pipeline routes
	handleRoute(POST, "/upload", uploadGateway.UploadAudio)
	handleRoute(POST, "/export", mixGateway.ExportMix)

	// artifact routes
	handleRoute(GET, "/output/:sessionId/:filename", func(c echo.Context) error {
		sessionID := c.Param("sessionId")
		filename := c.Param("filename")
		return outputGateway.GetFile(c, sessionID, filename)
	})

	// session routes
	handleRoute(DELETE, "/sessions/:id", func(c echo.Context) error {
		sessionID := c.Param("id")
		return sessionGateway.DeleteSession(c, sessionID)
	})

	return App{
		echo:   e,
		port:   config.Port,
		reaper: sessionReaper,
		model:  modelService,
	}
}

func (a *App) Start() error {
	a.reaper.Start()

	err := a.echo.Start(a.port)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start echo server")
	}

	return nil
}

func (a *App) Stop() error {
	a.reaper.Stop()
	a.model.Close()

	err := a.echo.Close()
	if err != nil {
		return errors.Wrap(err, "Failed to stop echo server")
	}

	return nil
}

func makeCorsMiddleware(config Config) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	})
}

func makeSessionStore(config Config) sessionstore.Store {
	store, err := sessionstore.NewStore(config.SessionsDirPath, config.Engine.SessionTTL)
	if err != nil {
		panic(errors.Wrap(err, "Failed to create session store"))
	}

	return store
}

// the working dir must not live inside the sessions root, or the reaper
// would sweep it away as an expired session
func makeWorkingDir(config Config) working_dir.WorkingDir {
	workingDir, err := working_dir.NewWorkingDir(config.WorkDirPath)
	if err != nil {
		panic(errors.Wrap(err, "Failed to create working directory"))
	}

	return workingDir
}

func makeModelService(config Config, workingDir working_dir.WorkingDir, binExecutor executor.Executor) *model.Service {
	demucsEngine := engine.NewDemucsEngine(
		config.DemucsBinPath,
		engine.Params{
			ModelName: config.Engine.ModelName,
			Shifts:    config.Engine.Shifts,
			Overlap:   config.Engine.Overlap,
		},
		workingDir,
		binExecutor,
	)

	return model.NewService(demucsEngine, int64(config.Engine.MaxSeparations))
}

func makeUploadGateway(
	config Config,
	sessionStore sessionstore.Store,
	modelService *model.Service,
	workingDir working_dir.WorkingDir,
	binExecutor executor.Executor,
) uploadgateway.Gateway {
	normalizer := ingest.NewNormalizer(config.FFmpegBinPath, binExecutor, config.Engine.TranscodeTimeout)
	orchestrator := separation.NewOrchestrator(modelService, workingDir, config.Engine.SeparateTimeout)
	uploadUsecase := uploadusecase.NewUsecase(sessionStore, normalizer, orchestrator)
	return uploadgateway.NewGateway(uploadUsecase)
}

func makeMixGateway(config Config, sessionStore sessionstore.Store, binExecutor executor.Executor) mixgateway.Gateway {
	renderer := mix.NewRenderer(config.FFmpegBinPath, binExecutor, config.Engine.MixTimeout)
	mixUsecase := mixusecase.NewUsecase(sessionStore, renderer)
	return mixgateway.NewGateway(mixUsecase)
}

func makeOutputGateway(sessionStore sessionstore.Store) outputgateway.Gateway {
	outputUsecase := outputusecase.NewUsecase(sessionStore)
	return outputgateway.NewGateway(outputUsecase)
}

func makeSessionGateway(sessionStore sessionstore.Store) sessiongateway.Gateway {
	sessionUsecase := sessionusecase.NewUsecase(sessionStore)
	return sessiongateway.NewGateway(sessionUsecase)
}
