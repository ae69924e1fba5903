package uploaderrors

import (
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
)

const (
	MissingAudioFileCode = api.ErrorCode("missing_audio_file")
	BadFilenameCode      = api.ErrorCode("bad_filename")
	TranscodeFailedCode  = api.ErrorCode("transcode_failed")
)
