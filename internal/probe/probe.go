// Package probe reads technical media tags from video files with ffprobe.
package probe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/vansante/go-ffprobe.v2"
)

// hdMinWidth is the narrowest frame classified as HD.
const hdMinWidth = 900

// ErrNoPath is returned when Probe is called without a file path.
var ErrNoPath = errors.New("probe: file path is required")

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Tags are the technical properties of one media file.
type Tags struct {
	Container      string        `json:"container,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
	VideoCodec     string        `json:"video_codec,omitempty"`
	Width          int           `json:"width,omitempty"`
	Height         int           `json:"height,omitempty"`
	Resolution     string        `json:"resolution,omitempty"`
	Definition     string        `json:"definition,omitempty"`
	AudioCodec     string        `json:"audio_codec,omitempty"`
	AudioChannels  int           `json:"audio_channels,omitempty"`
	AudioLanguages []string      `json:"audio_languages,omitempty"`
}

// Prober runs ffprobe with a per-file timeout.
type Prober struct {
	probe   probeFunc
	timeout time.Duration
	log     logrus.FieldLogger
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds each ffprobe run.
func WithTimeout(d time.Duration) Option { return func(p *Prober) { p.timeout = d } }

// WithLogger sets the prober logger.
func WithLogger(l logrus.FieldLogger) Option { return func(p *Prober) { p.log = l } }

// New creates a Prober backed by the ffprobe binary on PATH.
func New(opts ...Option) *Prober {
	p := &Prober{
		probe:   ffprobe.ProbeURL,
		timeout: 30 * time.Second,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe inspects the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (*Tags, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoPath
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	data, err := p.probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	tags := build(data)
	p.log.WithFields(logrus.Fields{
		"file":       filepath.Base(path),
		"video":      tags.VideoCodec,
		"resolution": tags.Resolution,
	}).Debug("probed media file")
	return tags, nil
}

func build(data *ffprobe.ProbeData) *Tags {
	tags := &Tags{}
	if data == nil {
		return tags
	}
	if data.Format != nil {
		if name, _, _ := strings.Cut(data.Format.FormatName, ","); name != "" {
			tags.Container = name
		}
		if data.Format.DurationSeconds > 0 {
			tags.Duration = time.Duration(data.Format.DurationSeconds * float64(time.Second))
		}
	}

	if v := data.FirstVideoStream(); v != nil {
		tags.VideoCodec = pickCodecName(v)
		tags.Width, tags.Height = v.Width, v.Height
		tags.Resolution = Resolution(v.Height)
		if v.Width > 0 {
			tags.Definition = Definition(v.Width)
		}
	}
	if a := data.FirstAudioStream(); a != nil {
		tags.AudioCodec = pickCodecName(a)
		tags.AudioChannels = a.Channels
	}
	for _, s := range data.Streams {
		if s == nil || s.CodecType != string(ffprobe.StreamAudio) {
			continue
		}
		if lang := s.Tags.Language; lang != "" && lang != "und" && !contains(tags.AudioLanguages, lang) {
			tags.AudioLanguages = append(tags.AudioLanguages, lang)
		}
	}
	return tags
}

// Definition classifies a frame width as "SD" or "HD".
func Definition(width int) string {
	if width < hdMinWidth {
		return "SD"
	}
	return "HD"
}

// Resolution names the common vertical resolutions, e.g. 1080 → "1080p".
func Resolution(height int) string {
	switch {
	case height <= 0:
		return ""
	case height >= 2000:
		return "2160p"
	case height >= 1000:
		return "1080p"
	case height >= 700:
		return "720p"
	case height >= 560:
		return "576p"
	}
	return "480p"
}

func pickCodecName(stream *ffprobe.Stream) string {
	if stream == nil {
		return ""
	}
	if stream.CodecName != "" {
		return stream.CodecName
	}
	return stream.CodecLongName
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
