package outputerrors

import (
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
)

const (
	FileNotFoundCode = api.ErrorCode("file_not_found")
	BadFilePathCode  = api.ErrorCode("bad_file_path")
)
