package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serveConfig = `log_level: error

sources:
  still:
    type: image
    path: still.png

jobs:
  still:
    source: still
    output: png
    path: out/still.png

api:
  bind: "127.0.0.1:0"
`

func TestStartServerRunsJobs(t *testing.T) {
	dir := t.TempDir()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "still.png"), img.Bytes(), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "out"), 0o755))
	cfgFile := filepath.Join(dir, "framexform.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(serveConfig), 0o644))

	cfg, p, err := setup(cfgFile)
	require.NoError(t, err)
	defer p.Close()

	a := startServer(cfg, p)
	require.NotNil(t, a)
	assert.FileExists(t, filepath.Join(dir, "out", "still.png"))
	assert.EqualValues(t, 1, p.Stats.Snapshot().FramesConverted)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, a.Shutdown(ctx))
}

func TestTransformCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"transform", "--src", "100x200", "--dst", "50x100", "--box", "0,0,25,50"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "frame to crop: [0.5 0 0; 0 0.5 0; 0 0 1]")
	assert.Contains(t, out.String(), "crop to frame: [2 0 0; 0 2 0; 0 0 1]")
	assert.Contains(t, out.String(), "box in frame: 0,0,50,100")
}

func TestTransformCommandRejectsRotation(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"transform", "--src", "100x200", "--dst", "50x100", "--rotation", "45", "--box", ""})
	assert.Error(t, rootCmd.Execute())
}
