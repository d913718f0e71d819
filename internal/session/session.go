// Package session keeps each browser's uploaded workbook between requests.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gagyebu/internal/cache"
	"gagyebu/internal/sheets"
	"gagyebu/internal/sheets/csvbook"
	"gagyebu/internal/sheets/xlsx"

	"github.com/google/uuid"
)

// CookieName identifies the session cookie.
const CookieName = "gagyebu_session"

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("empty file")
)

type Kind string

const (
	KindXLSX Kind = "xlsx"
	KindCSV  Kind = "csv"
)

// zipMagic starts every xlsx file.
var zipMagic = []byte("PK\x03\x04")

// Upload is a stored workbook file.
type Upload struct {
	// Token changes with every stored upload.
	Token      string
	Name       string
	Kind       Kind
	Data       []byte
	UploadedAt time.Time
}

// DetectKind decides the file type from its name, then its content.
func DetectKind(name string, data []byte) (Kind, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".csv", ".txt":
		return KindCSV, nil
	}
	if bytes.HasPrefix(data, zipMagic) {
		return KindXLSX, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
}

// Workbook opens the upload. The returned closer must be called.
func (u Upload) Workbook() (sheets.Workbook, io.Closer, error) {
	switch u.Kind {
	case KindXLSX:
		b, err := xlsx.OpenBytes(u.Data)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case KindCSV:
		b, err := csvbook.Read(bytes.NewReader(u.Data))
		if err != nil {
			return nil, nil, err
		}
		return b, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, u.Kind)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// State is what a session remembers.
type State struct {
	Upload *Upload
	Sheet  string
}

// Store maps session ids to state.
type Store struct {
	cache *cache.LRUCache[State]
}

// NewStore keeps at most maxSessions sessions, each alive for ttl after
// last use.
func NewStore(maxSessions int, ttl time.Duration, opts ...cache.Option) *Store {
	opts = append([]cache.Option{cache.WithSlidingTTL()}, opts...)
	return &Store{cache: cache.NewLRUCache[State](maxSessions, ttl, opts...)}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) Get(id string) (State, bool) {
	return s.cache.Get(id)
}

// PutUpload replaces the session's upload and resets the sheet choice.
// It returns the upload's token.
func (s *Store) PutUpload(id string, u Upload) string {
	u.Token = uuid.NewString()
	s.cache.Set(id, State{Upload: &u})
	return u.Token
}

// SelectSheet remembers the chosen sheet. No-op without an upload.
func (s *Store) SelectSheet(id, sheet string) {
	st, ok := s.cache.Get(id)
	if !ok || st.Upload == nil {
		return
	}
	st.Sheet = sheet
	s.cache.Set(id, st)
}

func (s *Store) Reset(id string) {
	s.cache.Delete(id)
}

func (s *Store) Size() int { return s.cache.Size() }

// Cleaner exposes the backing cache to a cache.Manager.
func (s *Store) Cleaner() cache.Cleaner { return s.cache }
