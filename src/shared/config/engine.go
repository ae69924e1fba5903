package config

import (
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Engine holds the tuning values for the processing pipeline. Anything not
// set in the override file keeps its default.
type Engine struct {
	ModelName        string        `yaml:"modelName"`
	Shifts           int           `yaml:"shifts"`
	Overlap          float64       `yaml:"overlap"`
	MaxSeparations   int           `yaml:"maxSeparations"`
	SessionTTL       time.Duration `yaml:"sessionTTL"`
	ReapInterval     time.Duration `yaml:"reapInterval"`
	TranscodeTimeout time.Duration `yaml:"transcodeTimeout"`
	SeparateTimeout  time.Duration `yaml:"separateTimeout"`
	MixTimeout       time.Duration `yaml:"mixTimeout"`
}

func DefaultEngine() Engine {
	return Engine{
		ModelName:        "htdemucs_ft",
		Shifts:           1,
		Overlap:          0.25,
		MaxSeparations:   runtime.NumCPU(),
		SessionTTL:       2 * time.Hour,
		ReapInterval:     10 * time.Minute,
		TranscodeTimeout: 5 * time.Minute,
		SeparateTimeout:  30 * time.Minute,
		MixTimeout:       5 * time.Minute,
	}
}

// LoadEngine reads the YAML override file at path on top of the defaults.
// An empty path returns the defaults untouched.
func LoadEngine(path string) (Engine, error) {
	engine := DefaultEngine()

	if path == "" {
		return engine, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return Engine{}, errors.Wrap(err, "Failed to read engine config file")
	}

	if err := yaml.Unmarshal(contents, &engine); err != nil {
		return Engine{}, errors.Wrap(err, "Failed to unmarshal engine config file")
	}

	if err := engine.Validate(); err != nil {
		return Engine{}, errors.Wrap(err, "Engine config file has invalid values")
	}

	return engine, nil
}

func (e Engine) Validate() error {
	if e.ModelName == "" {
		return errors.New("Model name must not be empty")
	}

	if e.Shifts < 0 {
		return errors.New("Shifts must not be negative")
	}

	if e.Overlap < 0 || e.Overlap >= 1 {
		return errors.New("Overlap must be in the range [0, 1)")
	}

	if e.MaxSeparations < 1 {
		return errors.New("Max separations must be at least 1")
	}

	return nil
}
