package sessionstore

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FloatTech/ttl"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/veedubyou/stem-mixer-be/src/server/internal/lib/cerr"
)

// marks for callers to classify failures with markers.Is
var (
	NotFoundMark = errors.New("session not found")
	BadIDMark    = errors.New("session id is not valid")
)

// Store owns the sessions root directory. Every upload gets its own
// directory named by a freshly generated ID, so distinct sessions can never
// collide. A TTL cache tracks which sessions are still live; the reaper
// removes directories that have fallen out of it.
type Store struct {
	rootDir  string
	liveness *ttl.Cache[string, time.Time]
}

func NewStore(rootDir string, sessionTTL time.Duration) (Store, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return Store{}, cerr.Field("root_dir", rootDir).
			Wrap(err).Error("Failed to convert sessions root to absolute format")
	}

	if err := os.MkdirAll(absRoot, os.ModePerm); err != nil {
		return Store{}, cerr.Field("root_dir", absRoot).
			Wrap(err).Error("Failed to create sessions root directory")
	}

	return Store{
		rootDir:  absRoot,
		liveness: ttl.NewCache[string, time.Time](sessionTTL),
	}, nil
}

func (s Store) Root() string {
	return s.rootDir
}

// Create generates a fresh session ID and its empty backing directory.
func (s Store) Create() (string, string, error) {
	sessionID := uuid.New().String()
	sessionDir := filepath.Join(s.rootDir, sessionID)

	if err := os.Mkdir(sessionDir, os.ModePerm); err != nil {
		return "", "", cerr.Field("session_dir", sessionDir).
			Wrap(err).Error("Failed to create session directory")
	}

	s.liveness.Set(sessionID, time.Now())

	return sessionID, sessionDir, nil
}

// Resolve validates the session ID and maps it to its backing directory,
// refreshing the session's liveness on success.
func (s Store) Resolve(sessionID string) (string, error) {
	if err := ValidateID(sessionID); err != nil {
		return "", err
	}

	sessionDir := filepath.Join(s.rootDir, sessionID)

	info, err := os.Stat(sessionDir)
	if err != nil || !info.IsDir() {
		notFoundErr := cerr.Field("session_id", sessionID).
			Error("No session exists for this ID")
		return "", errors.Mark(notFoundErr, NotFoundMark)
	}

	s.liveness.Set(sessionID, time.Now())

	return sessionDir, nil
}

// Delete removes the session directory and its liveness entry.
func (s Store) Delete(sessionID string) error {
	sessionDir, err := s.Resolve(sessionID)
	if err != nil {
		return err
	}

	s.liveness.Delete(sessionID)

	if err := os.RemoveAll(sessionDir); err != nil {
		return cerr.Field("session_dir", sessionDir).
			Wrap(err).Error("Failed to remove session directory")
	}

	return nil
}

// IsLive reports whether the session is still within its TTL.
func (s Store) IsLive(sessionID string) bool {
	return !s.liveness.Get(sessionID).IsZero()
}

// ValidateID rejects anything that could address outside the sessions root.
func ValidateID(sessionID string) error {
	badID := func() error {
		badIDErr := cerr.Field("session_id", sessionID).
			Error("Session ID contains unsafe characters")
		return errors.Mark(badIDErr, BadIDMark)
	}

	if sessionID == "" ||
		strings.ContainsAny(sessionID, "/\\") ||
		strings.Contains(sessionID, "..") ||
		filepath.Clean(sessionID) != sessionID ||
		strings.HasPrefix(sessionID, ".") {
		return badID()
	}

	return nil
}
