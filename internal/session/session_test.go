package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"gagyebu/internal/sheets/csvbook"
	"gagyebu/internal/sheets/xlsx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	k, err := DetectKind("5월.XLSX", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, KindXLSX, k)

	k, err = DetectKind("export.csv", []byte("a,b"))
	require.NoError(t, err)
	assert.Equal(t, KindCSV, k)

	k, err = DetectKind("blob", []byte("PK\x03\x04rest"))
	require.NoError(t, err)
	assert.Equal(t, KindXLSX, k)

	_, err = DetectKind("note.pdf", []byte("%PDF"))
	assert.True(t, errors.Is(err, ErrUnsupportedFile))

	_, err = DetectKind("a.xlsx", nil)
	assert.True(t, errors.Is(err, ErrEmptyFile))
}

func TestUploadWorkbook(t *testing.T) {
	data, err := xlsx.Build([]string{"5월"}, map[string][][]any{"5월": {{"a"}}})
	require.NoError(t, err)

	wb, closer, err := Upload{Name: "a.xlsx", Kind: KindXLSX, Data: data}.Workbook()
	require.NoError(t, err)
	defer closer.Close()
	names, err := wb.SheetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"5월"}, names)

	wb, closer, err = Upload{Name: "a.csv", Kind: KindCSV, Data: []byte("a,b\n")}.Workbook()
	require.NoError(t, err)
	defer closer.Close()
	names, err = wb.SheetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{csvbook.SheetName}, names)

	_, _, err = Upload{Kind: KindXLSX, Data: []byte("nope")}.Workbook()
	assert.Error(t, err)
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(10, time.Minute)
	id := NewID()
	require.True(t, ValidID(id))
	assert.False(t, ValidID("../etc"))

	_, ok := s.Get(id)
	assert.False(t, ok)

	s.SelectSheet(id, "5월")
	_, ok = s.Get(id)
	assert.False(t, ok, "selecting a sheet must not create a session")

	s.PutUpload(id, Upload{Name: "a.csv", Kind: KindCSV, Data: []byte("x")})
	s.SelectSheet(id, "CSV")
	st, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "a.csv", st.Upload.Name)
	assert.Equal(t, "CSV", st.Sheet)

	first := st.Upload.Token
	second := s.PutUpload(id, Upload{Name: "b.csv", Kind: KindCSV, Data: []byte("y")})
	st, _ = s.Get(id)
	assert.Empty(t, st.Sheet, "new upload resets sheet choice")
	assert.NotEqual(t, first, second)
	assert.Equal(t, second, st.Upload.Token)

	s.Reset(id)
	_, ok = s.Get(id)
	assert.False(t, ok)
}
