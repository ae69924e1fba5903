package session_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors/markers"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/testing"
	sessionerrors "github.com/veedubyou/stem-mixer-be/src/server/internal/session/errors"
	sessiongateway "github.com/veedubyou/stem-mixer-be/src/server/internal/session/gateway"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/session/reaper"
	sessionstore "github.com/veedubyou/stem-mixer-be/src/server/internal/session/store"
	sessionusecase "github.com/veedubyou/stem-mixer-be/src/server/internal/session/usecase"
)

var _ = Describe("Session", func() {
	var (
		rootDir string
		store   sessionstore.Store
	)

	makeStore := func(sessionTTL time.Duration) sessionstore.Store {
		newStore, err := sessionstore.NewStore(rootDir, sessionTTL)
		Expect(err).NotTo(HaveOccurred())
		return newStore
	}

	BeforeEach(func() {
		var err error
		rootDir, err = os.MkdirTemp("", "sessions-test-*")
		Expect(err).NotTo(HaveOccurred())

		store = makeStore(time.Hour)
	})

	AfterEach(func() {
		Expect(os.RemoveAll(rootDir)).To(Succeed())
	})

	Describe("Store", func() {
		Describe("Create", func() {
			It("creates a session directory under the root", func() {
				sessionID, sessionDir, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				Expect(sessionID).NotTo(BeEmpty())
				Expect(sessionDir).To(Equal(filepath.Join(store.Root(), sessionID)))

				info, err := os.Stat(sessionDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(info.IsDir()).To(BeTrue())
			})

			It("creates distinct sessions every time", func() {
				firstID, _, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				secondID, _, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				Expect(firstID).NotTo(Equal(secondID))
			})

			It("marks the new session as live", func() {
				sessionID, _, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				Expect(store.IsLive(sessionID)).To(BeTrue())
			})
		})

		Describe("Resolve", func() {
			It("maps a created session back to its directory", func() {
				sessionID, sessionDir, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				resolvedDir, err := store.Resolve(sessionID)
				Expect(err).NotTo(HaveOccurred())
				Expect(resolvedDir).To(Equal(sessionDir))
			})

			It("fails for a session that doesn't exist", func() {
				_, err := store.Resolve("4e9450b1-45b1-4b0a-bb2d-92ba718606f5")
				Expect(err).To(HaveOccurred())
				Expect(markers.Is(err, sessionstore.NotFoundMark)).To(BeTrue())
			})

			DescribeTable("rejects IDs that could escape the root",
				func(badID string) {
					_, err := store.Resolve(badID)
					Expect(err).To(HaveOccurred())
					Expect(markers.Is(err, sessionstore.BadIDMark)).To(BeTrue())
				},
				Entry("empty", ""),
				Entry("path traversal", "../other"),
				Entry("absolute path", "/etc/passwd"),
				Entry("nested path", "a/b"),
				Entry("backslash path", "a\\b"),
				Entry("hidden file", ".hidden"),
			)
		})

		Describe("Delete", func() {
			It("removes the session directory", func() {
				sessionID, sessionDir, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				Expect(store.Delete(sessionID)).To(Succeed())

				_, err = os.Stat(sessionDir)
				Expect(os.IsNotExist(err)).To(BeTrue())
				Expect(store.IsLive(sessionID)).To(BeFalse())
			})

			It("fails for a session that doesn't exist", func() {
				err := store.Delete("4e9450b1-45b1-4b0a-bb2d-92ba718606f5")
				Expect(markers.Is(err, sessionstore.NotFoundMark)).To(BeTrue())
			})
		})

		Describe("Liveness", func() {
			It("expires sessions once their TTL lapses", func() {
				shortLivedStore := makeStore(20 * time.Millisecond)

				sessionID, _, err := shortLivedStore.Create()
				Expect(err).NotTo(HaveOccurred())
				Expect(shortLivedStore.IsLive(sessionID)).To(BeTrue())

				Eventually(func() bool {
					return shortLivedStore.IsLive(sessionID)
				}).Should(BeFalse())
			})

			It("refreshes the TTL on resolve", func() {
				sessionID, _, err := store.Create()
				Expect(err).NotTo(HaveOccurred())

				_, err = store.Resolve(sessionID)
				Expect(err).NotTo(HaveOccurred())
				Expect(store.IsLive(sessionID)).To(BeTrue())
			})
		})
	})

	Describe("Reaper", func() {
		It("sweeps directories with no live session", func() {
			expiredDir := filepath.Join(store.Root(), "11111111-2222-3333-4444-555555555555")
			Expect(os.Mkdir(expiredDir, os.ModePerm)).To(Succeed())

			_, liveDir, err := store.Create()
			Expect(err).NotTo(HaveOccurred())

			sessionReaper := reaper.NewReaper(store, time.Hour)
			sessionReaper.Sweep()

			_, err = os.Stat(expiredDir)
			Expect(os.IsNotExist(err)).To(BeTrue())

			_, err = os.Stat(liveDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("ignores plain files in the sessions root", func() {
			strayFile := filepath.Join(store.Root(), "stray.txt")
			Expect(os.WriteFile(strayFile, []byte("leftover"), 0644)).To(Succeed())

			sessionReaper := reaper.NewReaper(store, time.Hour)
			sessionReaper.Sweep()

			_, err := os.Stat(strayFile)
			Expect(err).NotTo(HaveOccurred())
		})

		It("stops cleanly when asked twice", func() {
			sessionReaper := reaper.NewReaper(store, time.Hour)
			sessionReaper.Start()
			sessionReaper.Stop()
			sessionReaper.Stop()
		})
	})

	Describe("Delete session endpoint", func() {
		var gateway sessiongateway.Gateway

		BeforeEach(func() {
			gateway = sessiongateway.NewGateway(sessionusecase.NewUsecase(store))
		})

		deleteSession := func(sessionID string) *httptest.ResponseRecorder {
			request := testing.RequestFactory{
				Method: "DELETE",
				Target: "/sessions/:id",
			}.MakeFake()

			response := httptest.NewRecorder()
			c := testing.PrepareEchoContext(request, response)

			err := gateway.DeleteSession(c, sessionID)
			Expect(err).NotTo(HaveOccurred())

			return response
		}

		It("deletes an existing session", func() {
			sessionID, sessionDir, err := store.Create()
			Expect(err).NotTo(HaveOccurred())

			response := deleteSession(sessionID)
			Expect(response.Code).To(Equal(http.StatusNoContent))

			_, err = os.Stat(sessionDir)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("fails with the right error code for a malformed ID", func() {
			response := deleteSession("../escape")
			Expect(response.Code).To(Equal(http.StatusBadRequest))

			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(sessionerrors.BadSessionIDCode))
		})

		It("fails with the right error code for a missing session", func() {
			response := deleteSession("4e9450b1-45b1-4b0a-bb2d-92ba718606f5")
			Expect(response.Code).To(Equal(http.StatusNotFound))

			resErr := testing.DecodeJSONError(response.Body)
			Expect(resErr.Code).To(BeEquivalentTo(sessionerrors.SessionNotFoundCode))
		})
	})
})
