package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/veedubyou/stem-mixer-be/src/server/application"
	"github.com/veedubyou/stem-mixer-be/src/shared/config"
	"github.com/veedubyou/stem-mixer-be/src/shared/config/envvar"
	"github.com/veedubyou/stem-mixer-be/src/shared/lib/env"
)

func main() {
	engine, err := config.LoadEngine(envvar.GetOrDefault(envvar.MIXER_CONFIG_PATH, ""))
	if err != nil {
		panic(errors.Wrap(err, "Failed to load the engine config"))
	}

	var appConfig application.Config

	switch env.Get() {
	case env.Production:
		commaSeparatedOrigins := envvar.MustGet("ALLOWED_FE_ORIGINS")
		allowedOrigins := strings.Split(commaSeparatedOrigins, ",")

		appConfig = application.Config{
			FFmpegBinPath:      envvar.MustGet(envvar.FFMPEG_BIN_PATH),
			DemucsBinPath:      envvar.MustGet(envvar.DEMUCS_BIN_PATH),
			SessionsDirPath:    envvar.MustGet(envvar.SESSIONS_DIR_PATH),
			WorkDirPath:        envvar.MustGet(envvar.WORK_DIR_PATH),
			Engine:             engine,
			CORSAllowedOrigins: allowedOrigins,
			Port:               ":5000",
			Log:                true,
		}
	case env.Development:
		appConfig = application.Config{
			FFmpegBinPath:      envvar.GetOrDefault(envvar.FFMPEG_BIN_PATH, "ffmpeg"),
			DemucsBinPath:      envvar.GetOrDefault(envvar.DEMUCS_BIN_PATH, "demucs"),
			SessionsDirPath:    envvar.GetOrDefault(envvar.SESSIONS_DIR_PATH, "output"),
			WorkDirPath:        envvar.GetOrDefault(envvar.WORK_DIR_PATH, filepath.Join(os.TempDir(), "stem-mixer-work")),
			Engine:             engine,
			CORSAllowedOrigins: []string{"*"},
			Port:               ":5000",
			Log:                true,
		}

	default:
		panic("Unexpected environment")
	}

	app := application.NewApp(appConfig)
	if err := app.Start(); err != nil {
		panic(err)
	}
}
