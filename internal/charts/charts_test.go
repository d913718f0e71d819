package charts

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"gagyebu/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(pairs ...any) []core.CategoryAmount {
	var out []core.CategoryAmount
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, core.CategoryAmount{
			Name:   pairs[i].(string),
			Amount: decimal.NewFromInt(int64(pairs[i+1].(int))),
		})
	}
	return out
}

func daily(amounts ...int64) []core.DateAmount {
	out := make([]core.DateAmount, len(amounts))
	for i, a := range amounts {
		out[i] = core.DateAmount{
			Date:   time.Date(2024, 5, i+1, 0, 0, 0, 0, time.UTC),
			Amount: decimal.NewFromInt(a),
		}
	}
	return out
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)
	assert.Equal(t, "image/png", f.ContentType())

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestRenderSVG(t *testing.T) {
	r := NewRenderer(FormatSVG, nil)

	var pie bytes.Buffer
	require.NoError(t, r.CategoryPie(&pie, named("식비", 7000, "건강", 4500)))
	assert.Contains(t, pie.String(), "<svg")

	var bar bytes.Buffer
	require.NoError(t, r.TopItemsBar(&bar, named("휴지", 8900, "약", 4500, "라면", 2500)))
	assert.Contains(t, bar.String(), "<svg")

	var line bytes.Buffer
	require.NoError(t, r.DailyLine(&line, daily(13400, 4500, 2500)))
	assert.Contains(t, line.String(), "<svg")
}

func TestRenderPNG(t *testing.T) {
	r := NewRenderer(FormatPNG, nil)
	var buf bytes.Buffer
	require.NoError(t, r.CategoryPie(&buf, named("식비", 7000)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestNoData(t *testing.T) {
	r := NewRenderer(FormatSVG, nil)
	var buf bytes.Buffer

	assert.True(t, errors.Is(r.CategoryPie(&buf, nil), ErrNoData))
	assert.True(t, errors.Is(r.CategoryPie(&buf, named("환불", -100)), ErrNoData))
	assert.True(t, errors.Is(r.TopItemsBar(&buf, nil), ErrNoData))
	assert.True(t, errors.Is(r.DailyLine(&buf, daily(1200)), ErrNoData))
	assert.Zero(t, buf.Len())
}

func TestBluesIsMonotonic(t *testing.T) {
	pale, deep := blues(0), blues(1)
	assert.Greater(t, pale.B, deep.B)
	assert.Equal(t, blues(2), deep)
}

func TestLoadFontMissingFile(t *testing.T) {
	_, err := LoadFont(t.TempDir() + "/none.ttf")
	assert.Error(t, err)
}
