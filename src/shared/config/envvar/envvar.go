package envvar

import (
	"fmt"
	"os"
)

const (
	FFMPEG_BIN_PATH   = "FFMPEG_BIN_PATH"
	DEMUCS_BIN_PATH   = "DEMUCS_BIN_PATH"
	SESSIONS_DIR_PATH = "SESSIONS_DIR_PATH"
	WORK_DIR_PATH     = "WORK_DIR_PATH"
	MIXER_CONFIG_PATH = "MIXER_CONFIG_PATH"
)

func MustGet(key string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet {
		panic(fmt.Sprintf("No env variable found for key %s", key))
	}

	if val == "" {
		panic(fmt.Sprintf("Env variable is empty for key %s", key))
	}

	return val
}

func GetOrDefault(key string, defaultVal string) string {
	val, isSet := os.LookupEnv(key)
	if !isSet || val == "" {
		return defaultVal
	}

	return val
}
