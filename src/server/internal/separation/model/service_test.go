package model_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/testing/dummy"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/engine"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/separation/model"
)

var _ = Describe("Service", func() {
	var (
		dummyEngine *dummy.Engine
		service     *model.Service
	)

	BeforeEach(func() {
		dummyEngine = dummy.NewDummyEngine(func(inputPath string, outputDir string) (engine.StemFilePaths, error) {
			return engine.StemFilePaths{"vocals": "/stems/vocals.wav"}, nil
		})

		service = model.NewService(dummyEngine, 2)
	})

	It("probes the engine once across many separations", func() {
		for i := 0; i < 3; i++ {
			_, err := service.Separate(context.Background(), "/input.wav", "/stems")
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(dummyEngine.ProbeCount()).To(Equal(1))
	})

	It("passes the input through to the engine", func() {
		stemFilePaths, err := service.Separate(context.Background(), "/input.wav", "/stems")
		Expect(err).NotTo(HaveOccurred())

		Expect(stemFilePaths).To(Equal(engine.StemFilePaths{"vocals": "/stems/vocals.wav"}))
		Expect(dummyEngine.SeparateInputs()).To(Equal([]string{"/input.wav"}))
	})

	It("fails every separation when the probe fails", func() {
		dummyEngine.Unavailable = true

		_, err := service.Separate(context.Background(), "/input.wav", "/stems")
		Expect(err).To(HaveOccurred())

		// the failed probe is not retried
		dummyEngine.Unavailable = false
		_, err = service.Separate(context.Background(), "/input.wav", "/stems")
		Expect(err).To(HaveOccurred())
		Expect(dummyEngine.ProbeCount()).To(Equal(1))
	})

	It("refuses work after being closed", func() {
		service.Close()

		_, err := service.Separate(context.Background(), "/input.wav", "/stems")
		Expect(err).To(HaveOccurred())
		Expect(dummyEngine.SeparateInputs()).To(BeEmpty())
	})

	It("gives up waiting for a slot when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := service.Separate(ctx, "/input.wav", "/stems")
		Expect(err).To(HaveOccurred())
	})
})
