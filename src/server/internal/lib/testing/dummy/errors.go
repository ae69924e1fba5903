package dummy

import (
	"github.com/cockroachdb/errors"
)

var (
	ProcessFailure = errors.New("dummy: process exited with failure")
	Unavailable    = errors.New("dummy: binary is unavailable")
)
