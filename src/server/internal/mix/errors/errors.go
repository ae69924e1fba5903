package mixerrors

import (
	"github.com/veedubyou/stem-mixer-be/src/server/internal/errors/api"
)

const (
	BadMixDataCode      = api.ErrorCode("bad_mix_data")
	NoAudibleTracksCode = api.ErrorCode("no_audible_tracks")
	NoStemSourcesCode   = api.ErrorCode("no_stem_sources")
	MixdownFailedCode   = api.ErrorCode("mixdown_failed")
)
