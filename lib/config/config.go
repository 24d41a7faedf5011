package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fosdem/framexform/lib/encdec"
	yaml "github.com/goccy/go-yaml"
)

type Config struct {
	Sources  map[string]*SourceCfg
	Jobs     map[string]*JobCfg
	Api      *ApiCfg
	LogLevel string `yaml:"log_level"`
}

func Parse(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", filename, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			_ = fmt.Errorf("could not close %s: %s", filename, err)
		}
	}(f)

	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("somehow, %s is malformed: %w", filename, err)
	}
	UnmarshalBase = filepath.Dir(absFilename)

	m := yaml.NewDecoder(f)
	cfg := &Config{}
	err = m.Decode(cfg)
	if err != nil {
		return nil, err
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, err
}

func (c *Config) Validate() error {
	var err error
	if len(c.Sources) < 1 {
		return fmt.Errorf("at least one source should be defined")
	}
	if len(c.Jobs) < 1 {
		return fmt.Errorf("at least one job should be defined")
	}
	for k, v := range c.Sources {
		err = v.Validate()
		if err != nil {
			return fmt.Errorf("source %s is invalid: %w", k, err)
		}
	}
	for k, v := range c.Jobs {
		err = v.Validate()
		if err != nil {
			return fmt.Errorf("job %s is invalid: %w", k, err)
		}
		if _, ok := c.Sources[v.Source]; !ok {
			return fmt.Errorf("job %s refers to non-existant source %s", k, v.Source)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %s", c.LogLevel)
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Sources:\n")

	for _, k := range sortedKeys(c.Sources) {
		b.WriteString(fmt.Sprintf("  %s (%s)\n", k, c.Sources[k].Type))
	}

	b.WriteString("\nJobs:\n")
	for _, k := range sortedKeys(c.Jobs) {
		v := c.Jobs[k]
		b.WriteString(fmt.Sprintf("  %s: %s -> %s (rotation %d)\n", k, v.Source, v.Output, v.Rotation))
	}

	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type SourceCfgStub struct {
	Type string
}

type Valid interface {
	Validate() error
}

type SourceCfg struct {
	SourceCfgStub
	Cfg Valid
}

type PlaneCfg struct {
	Offset      int `yaml:"offset"`
	RowStride   int `yaml:"row_stride"`
	PixelStride int `yaml:"pixel_stride"`
}

// RawSourceCfg describes a raw frame dump. For yuv_420_888 every plane is
// located by its byte offset in the file; nv21 files are packed.
type RawSourceCfg struct {
	encdec.FrameCfg `yaml:"frames"`
	Path            CfgPath
	Format          string
	Planes          []PlaneCfg
	Crop            *encdec.CropRect
}

type ImgSourceCfg struct {
	Path    CfgPath
	Inotify bool
}

func (s *SourceCfg) UnmarshalYAML(b []byte) error {
	err := yaml.Unmarshal(b, &s.SourceCfgStub)
	if err != nil {
		return err
	}

	switch s.Type {
	case "raw":
		cfg := RawSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "image":
		cfg := ImgSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	default:
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}

func (s *SourceCfg) Validate() error {
	if s.Cfg == nil {
		return fmt.Errorf("source type must be specified")
	}
	return s.Cfg.Validate()
}

func (s *RawSourceCfg) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("path to raw frame file must be specified")
	}
	err := s.FrameCfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid frame config: %w", err)
	}
	format, err := encdec.ParsePixelFormat(s.Format)
	if err != nil {
		return err
	}
	switch format {
	case encdec.YUV420888:
		if len(s.Planes) != 3 {
			return fmt.Errorf("a yuv_420_888 source needs exactly 3 planes, got %d", len(s.Planes))
		}
		for i, p := range s.Planes {
			if p.Offset < 0 || p.RowStride < 1 || p.PixelStride < 1 {
				return fmt.Errorf("plane %d needs a nonnegative offset and positive strides", i)
			}
		}
	case encdec.NV21:
		if len(s.Planes) != 0 {
			return fmt.Errorf("planes cannot be specified for a packed nv21 source")
		}
	}
	if s.Crop != nil {
		err = s.Crop.Validate(s.Width, s.Height, true)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ImgSourceCfg) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("image path must be specified")
	}
	return nil
}

type OutputType string

const (
	OutputJPEG OutputType = "jpeg"
	OutputPNG  OutputType = "png"
	OutputNV21 OutputType = "nv21"
	OutputARGB OutputType = "argb"
)

type TransformCfg struct {
	Width               int
	Height              int
	MaintainAspectRatio bool `yaml:"maintain_aspect_ratio"`
}

type JobCfg struct {
	Source    string
	Rotation  int
	Output    OutputType
	Quality   *int
	Path      CfgPath
	Transform *TransformCfg
}

func (j *JobCfg) JPEGQuality() int {
	if j.Quality == nil {
		return 80
	}
	return *j.Quality
}

func (j *JobCfg) Validate() error {
	if j.Source == "" {
		return fmt.Errorf("source must be specified")
	}
	if j.Rotation%90 != 0 {
		return fmt.Errorf("rotation %d is not a multiple of 90", j.Rotation)
	}
	switch j.Output {
	case OutputJPEG, OutputPNG, OutputNV21, OutputARGB:
	case "":
		j.Output = OutputJPEG
	default:
		return fmt.Errorf("unknown output type %s", j.Output)
	}
	if q := j.JPEGQuality(); q < 0 || q > 100 {
		return fmt.Errorf("quality must be within 0..100, got %d", q)
	}
	if j.Transform != nil && (j.Transform.Width < 1 || j.Transform.Height < 1) {
		return fmt.Errorf("transform width and height must be positive")
	}
	return nil
}

type ApiCfg struct {
	Bind           string
	EnableProfiler bool `yaml:"enable_profiler"`
}
