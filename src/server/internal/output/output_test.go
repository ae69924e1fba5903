package output_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/testing"
	outputerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/output/errors"
	outputgateway "github.com/veedubyou/stem-mixer-be/src/server/internal/output/gateway"
	outputusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/output/usecase"
	sessionerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/session/errors"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
)

var _ = Describe("Output", func() {
	var (
		rootDir    string
		store      sessionstore.Store
		gateway    outputgateway.Gateway
		sessionID  string
		sessionDir string
	)

	BeforeEach(func() {
		var err error
		rootDir, err = os.MkdirTemp("", "output-test-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = sessionstore.NewStore(rootDir, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		sessionID, sessionDir, err = store.Create()
		Expect(err).NotTo(HaveOccurred())

		stemPath := filepath.Join(sessionDir, "vocals.wav")
		Expect(os.WriteFile(stemPath, []byte("vocals audio"), 0644)).To(Succeed())

		gateway = outputgateway.NewGateway(outputusecase.NewUsecase(store))
	})

	AfterEach(func() {
		Expect(os.RemoveAll(rootDir)).To(Succeed())
	})

	getFile := func(sessionID string, filename string) *httptest.ResponseRecorder {
		request := testing.RequestFactory{
			Method: "GET",
			Target: fmt.Sprintf("/output/%s/%s", sessionID, filename),
		}.MakeFake()

		response := httptest.NewRecorder()
		c := testing.PrepareEchoContext(request, response)

		err := gateway.GetFile(c, sessionID, filename)
		Expect(err).NotTo(HaveOccurred())

		return response
	}

	It("serves a stem file from the session", func() {
		response := getFile(sessionID, "vocals.wav")

		Expect(response.Code).To(Equal(http.StatusOK))
		Expect(response.Body.String()).To(Equal("vocals audio"))
	})

	It("fails with the right error code for a missing file", func() {
		response := getFile(sessionID, "theremin.wav")

		Expect(response.Code).To(Equal(http.StatusNotFound))
		resErr := testing.DecodeJSONError(response.Body)
		Expect(resErr.Code).To(BeEquivalentTo(outputerrors.FileNotFoundCode))
	})

	It("refuses to serve a directory", func() {
		Expect(os.Mkdir(filepath.Join(sessionDir, "subdir"), os.ModePerm)).To(Succeed())

		response := getFile(sessionID, "subdir")

		Expect(response.Code).To(Equal(http.StatusNotFound))
		resErr := testing.DecodeJSONError(response.Body)
		Expect(resErr.Code).To(BeEquivalentTo(outputerrors.FileNotFoundCode))
	})

	DescribeTable("rejects filenames that could escape the session",
		func(badName string) {
			response := getFile(sessionID, badName)

			Expect(response.Code).To(Equal(http.StatusBadRequest))
			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(outputerrors.BadFilePathCode))
		},
		Entry("empty", ""),
		Entry("path traversal", "../other-session/vocals.wav"),
		Entry("bare traversal", ".."),
		Entry("nested path", "subdir/vocals.wav"),
		Entry("backslash path", "subdir\\vocals.wav"),
	)

	It("fails with the right error code for an unknown session", func() {
		response := getFile("4e9450b1-45b1-4b0a-bb2d-92ba718606f5", "vocals.wav")

		Expect(response.Code).To(Equal(http.StatusNotFound))
		resErr := testing.DecodeJSONError(response.Body)
		Expect(resErr.Code).To(BeEquivalentTo(sessionerrors.SessionNotFoundCode))
	})

	It("fails with the right error code for a malformed session ID", func() {
		response := getFile("../escape", "vocals.wav")

		Expect(response.Code).To(Equal(http.StatusBadRequest))
		resErr := testing.DecodeJSONError(response.Body)
		Expect(resErr.Code).To(BeEquivalentTo(sessionerrors.BadSessionIDCode))
	})
})
