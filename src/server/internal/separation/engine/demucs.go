package engine

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/executor"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/working_dir"
)

var _ Engine = DemucsEngine{}

// Params are the inference tuning knobs passed to every model invocation.
type Params struct {
	ModelName string
	Shifts    int
	Overlap   float64
}

func NewDemucsEngine(demucsBinPath string, params Params, workingDir working_dir.WorkingDir, executor executor.Executor) DemucsEngine {
	return DemucsEngine{
		demucsBinPath: demucsBinPath,
		params:        params,
		workingDir:    workingDir,
		executor:      executor,
	}
}

// DemucsEngine invokes the demucs CLI on the CPU. Inference dominates
// end-to-end latency and scales with input duration; faults are
// deterministic for a given input and never retried.
type DemucsEngine struct {
	demucsBinPath string
	params        Params
	workingDir    working_dir.WorkingDir
	executor      executor.Executor
}

func (d DemucsEngine) Probe(ctx context.Context) error {
	cmd := d.executor.Command(ctx, d.demucsBinPath, "--help")
	cmd.SetDir(d.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		return cerr.Field("demucs_bin_path", d.demucsBinPath).
			Field("demucs_output", string(output)).
			Wrap(err).Error("The separation model binary is not runnable")
	}

	return nil
}

func (d DemucsEngine) Separate(ctx context.Context, inputPath string, outputDir string) (StemFilePaths, error) {
	absInputPath, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Cannot convert source path to absolute format")
	}

	errctx := cerr.Field("input_path", absInputPath)

	absOutputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Cannot convert destination path to absolute format")
	}

	// separation is a lengthy process, if we want to halt now is the time
	if ctx.Err() != nil {
		return nil, cerr.Wrap(ctx.Err()).Error("Context cancelled before separation could happen")
	}

	if err := d.runDemucs(ctx, absInputPath, absOutputDir); err != nil {
		return nil, errctx.Field("output_dir", absOutputDir).
			Wrap(err).Error("Failed to execute demucs")
	}

	return collectStemFilePaths(absOutputDir)
}

func (d DemucsEngine) runDemucs(ctx context.Context, sourcePath string, destPath string) error {
	logger := log.WithFields(log.Fields{
		"sourcePath": sourcePath,
		"destPath":   destPath,
		"model":      d.params.ModelName,
		"workingDir": d.workingDir,
	})

	logger.Info("Running demucs command")

	args := []string{
		"-n", d.params.ModelName,
		"-d", "cpu",
		"--shifts", strconv.Itoa(d.params.Shifts),
		"--overlap", strconv.FormatFloat(d.params.Overlap, 'f', -1, 64),
		"--float32",
		"-o", destPath,
		"--filename", "{stem}.{ext}",
		sourcePath,
	}

	errctx := cerr.Field("demucs_bin_path", d.demucsBinPath).Field("demucs_args", args)

	cmd := d.executor.Command(ctx, d.demucsBinPath, args...)
	cmd.SetDir(d.workingDir.Root())

	output, err := cmd.CombinedOutput()
	if err != nil {
		return errctx.Field("demucs_output", string(output)).
			Wrap(err).
			Error(fmt.Sprintf("Error occurred while running demucs: %s", string(output)))
	}

	logger.Debug(string(output))
	logger.Info("Finished demucs command")

	return nil
}

// collectStemFilePaths gathers the produced stem files. Demucs nests its
// output under model/track subdirectories, so the whole tree is walked.
func collectStemFilePaths(dir string) (StemFilePaths, error) {
	logger := log.WithFields(log.Fields{
		"dir": dir,
	})

	logger.Info("Walking directory to collect stem file paths")

	outputs := StemFilePaths{}

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return nil
		}

		fileName := entry.Name()
		if !strings.EqualFold(filepath.Ext(fileName), ".wav") {
			return nil
		}

		filePath, err := filepath.Abs(path)
		if err != nil {
			return cerr.Field("relative_file_path", path).
				Wrap(err).Error("Failed to convert file path to absolute format")
		}

		stemName := strings.TrimSuffix(fileName, filepath.Ext(fileName))
		outputs[stemName] = filePath
		return nil
	})

	if err != nil {
		return nil, cerr.Wrap(err).Error("Error reading output directory")
	}

	if len(outputs) == 0 {
		return nil, cerr.Field("dir", dir).Error("No stem files in output directory")
	}

	return outputs, nil
}
