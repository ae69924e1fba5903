package upload_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/ingest"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/testing"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/testing/dummy"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/wavlib"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/working_dir"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation"
	separationerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/separation/errors"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/engine"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/model"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
	uploaderrors "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/errors"
	uploadgateway "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/gateway"
	uploadusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/upload/usecase"
)

var _ = Describe("Upload", func() {
	var (
		rootDir     string
		workDir     string
		store       sessionstore.Store
		executor    *dummy.Executor
		dummyEngine *dummy.Engine
		gateway     uploadgateway.Gateway
	)

	canonicalWaveform := wavlib.Waveform{
		SampleRate: 44100,
		Channels: [][]float64{
			{0.5, -0.25, 0.75, 0.0},
			{0.25, -0.5, 0.5, 0.25},
		},
	}

	// the dummy ffmpeg drops a real canonical artifact, the dummy engine
	// echoes its input back as two stems
	BeforeEach(func() {
		var err error
		rootDir, err = os.MkdirTemp("", "upload-sessions-*")
		Expect(err).NotTo(HaveOccurred())

		workDir, err = os.MkdirTemp("", "upload-work-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = sessionstore.NewStore(rootDir, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		executor = dummy.NewDummyExecutor()
		executor.Handler = func(inv dummy.Invocation) ([]byte, error) {
			outputPath := inv.Args[len(inv.Args)-1]
			return []byte{}, wavlib.WritePCM16File(outputPath, canonicalWaveform)
		}

		dummyEngine = dummy.NewDummyEngine(func(inputPath string, outputDir string) (engine.StemFilePaths, error) {
			input, err := wavlib.ReadFile(inputPath)
			if err != nil {
				return nil, err
			}

			if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
				return nil, err
			}

			stemFilePaths := engine.StemFilePaths{}
			for _, stemName := range []string{"vocals", "drums"} {
				stemPath := filepath.Join(outputDir, stemName+".wav")
				if err := wavlib.WriteFloat32File(stemPath, input); err != nil {
					return nil, err
				}
				stemFilePaths[stemName] = stemPath
			}

			return stemFilePaths, nil
		})

		workingDir, err := working_dir.NewWorkingDir(workDir)
		Expect(err).NotTo(HaveOccurred())

		normalizer := ingest.NewNormalizer("/bin/ffmpeg", executor, time.Minute)
		orchestrator := separation.NewOrchestrator(model.NewService(dummyEngine, 1), workingDir, time.Minute)
		gateway = uploadgateway.NewGateway(uploadusecase.NewUsecase(store, normalizer, orchestrator))
	})

	AfterEach(func() {
		Expect(os.RemoveAll(rootDir)).To(Succeed())
		Expect(os.RemoveAll(workDir)).To(Succeed())
	})

	uploadFile := func(filename string) *httptest.ResponseRecorder {
		request := testing.MakeMultipartFileRequest("/upload", uploadgateway.AudioFormField, filename, []byte("uploaded audio"))
		response := httptest.NewRecorder()
		c := testing.PrepareEchoContext(request, response)

		err := gateway.UploadAudio(c)
		Expect(err).NotTo(HaveOccurred())

		return response
	}

	sessionDirs := func() []os.DirEntry {
		dirEntries, err := os.ReadDir(store.Root())
		Expect(err).NotTo(HaveOccurred())
		return dirEntries
	}

	Describe("Happy path", func() {
		It("responds with the separated stems and the session", func() {
			response := uploadFile("song.mp3")
			Expect(response.Code).To(Equal(http.StatusOK))

			result := testing.DecodeJSON[map[string]any](response.Body)

			sessionID := testing.ExpectType[string](result["path"])
			Expect(sessionID).NotTo(BeEmpty())

			tracks := testing.ExpectType[[]any](result["tracks"])
			Expect(tracks).To(HaveLen(2))

			vocals := testing.ExpectType[map[string]any](tracks[0])
			Expect(vocals["name"]).To(Equal("Vocals"))
			Expect(vocals["url"]).To(Equal("/output/" + sessionID + "/vocals.wav"))

			drums := testing.ExpectType[map[string]any](tracks[1])
			Expect(drums["name"]).To(Equal("Drums"))
			Expect(drums["url"]).To(Equal("/output/" + sessionID + "/drums.wav"))
		})

		It("persists the stems into the session directory", func() {
			response := uploadFile("song.mp3")
			Expect(response.Code).To(Equal(http.StatusOK))

			result := testing.DecodeJSON[map[string]any](response.Body)
			sessionID := testing.ExpectType[string](result["path"])

			sessionDir, err := store.Resolve(sessionID)
			Expect(err).NotTo(HaveOccurred())

			for _, stemFile := range []string{"vocals.wav", "drums.wav"} {
				_, err := os.Stat(filepath.Join(sessionDir, stemFile))
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})

	Describe("Failure cases", func() {
		It("fails when no audio file is attached", func() {
			request := testing.RequestFactory{
				Method: "POST",
				Target: "/upload",
			}.MakeFake()

			response := httptest.NewRecorder()
			c := testing.PrepareEchoContext(request, response)

			err := gateway.UploadAudio(c)
			Expect(err).NotTo(HaveOccurred())

			Expect(response.Code).To(Equal(http.StatusBadRequest))
			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(uploaderrors.MissingAudioFileCode))
		})

		It("fails for a filename with nothing salvageable", func() {
			response := uploadFile("???")

			Expect(response.Code).To(Equal(http.StatusBadRequest))
			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(uploaderrors.BadFilenameCode))
		})

		It("fails and discards the session when transcoding fails", func() {
			executor.Handler = func(inv dummy.Invocation) ([]byte, error) {
				return []byte("Invalid data found when processing input"), dummy.ProcessFailure
			}

			response := uploadFile("song.mp3")

			Expect(response.Code).To(Equal(http.StatusInternalServerError))
			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(uploaderrors.TranscodeFailedCode))

			Expect(sessionDirs()).To(BeEmpty())
		})

		It("fails and discards the session when separation fails", func() {
			dummyEngine.Unavailable = true

			response := uploadFile("song.mp3")

			Expect(response.Code).To(Equal(http.StatusInternalServerError))
			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(separationerrors.SeparationFailedCode))

			Expect(sessionDirs()).To(BeEmpty())
		})
	})
})
