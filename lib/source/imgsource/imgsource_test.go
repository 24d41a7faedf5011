package imgsource

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosdem/framexform/lib/config"
	"github.com/fosdem/framexform/lib/encdec"
	"github.com/fosdem/framexform/lib/log"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "still.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestStartLoadsImage(t *testing.T) {
	path := writePNG(t, solidImage(5, 4, color.NRGBA{R: 255, A: 255}))
	src := New("still", &config.ImgSourceCfg{Path: config.CfgPath(path)}, log.Discard())
	require.True(t, src.Start())
	defer func() { assert.NoError(t, src.Close()) }()

	frame := src.Frame()
	require.NotNil(t, frame)
	// odd width is snapped down
	assert.Equal(t, 4, frame.Width())
	assert.Equal(t, 4, frame.Height())
	assert.Equal(t, encdec.NV21, frame.Format())
	assert.Equal(t, byte(82), frame.Planes()[0].Data[0])
	assert.Equal(t, byte(240), frame.Planes()[2].Data[0])
	assert.Equal(t, byte(90), frame.Planes()[1].Data[0])
}

func TestSetImage(t *testing.T) {
	path := writePNG(t, solidImage(2, 2, color.NRGBA{A: 255}))
	src := New("still", &config.ImgSourceCfg{Path: config.CfgPath(path)}, log.Discard())
	require.True(t, src.Start())

	require.NoError(t, src.SetImage(solidImage(6, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})))
	frame := src.Frame()
	assert.Equal(t, 6, frame.Width())
	assert.Equal(t, byte(235), frame.Planes()[0].Data[0])

	assert.Error(t, src.SetImage(solidImage(1, 1, color.NRGBA{A: 255})))
	assert.Equal(t, 6, src.Frame().Width())
}

func TestStartFailsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))
	src := New("broken", &config.ImgSourceCfg{Path: config.CfgPath(path)}, log.Discard())
	assert.False(t, src.Start())
	assert.Nil(t, src.Frame())
}
