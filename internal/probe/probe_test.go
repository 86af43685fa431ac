package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	ffprobeLib "gopkg.in/vansante/go-ffprobe.v2"
)

func TestProbe(t *testing.T) {
	p := New()
	var gotPath string
	p.probe = func(ctx context.Context, path string, extraOpts ...string) (*ffprobeLib.ProbeData, error) {
		gotPath = path
		if _, ok := ctx.Deadline(); !ok {
			t.Error("probe context has no deadline")
		}
		return &ffprobeLib.ProbeData{
			Format: &ffprobeLib.Format{FormatName: "matroska,webm", DurationSeconds: 5400},
			Streams: []*ffprobeLib.Stream{
				{CodecName: "h264", CodecType: string(ffprobeLib.StreamVideo), Width: 1920, Height: 1080},
				{CodecName: "aac", CodecType: string(ffprobeLib.StreamAudio), Channels: 6, Tags: ffprobeLib.StreamTags{Language: "eng"}},
				{CodecName: "ac3", CodecType: string(ffprobeLib.StreamAudio), Channels: 2, Tags: ffprobeLib.StreamTags{Language: "fre"}},
				{CodecName: "ac3", CodecType: string(ffprobeLib.StreamAudio), Channels: 2, Tags: ffprobeLib.StreamTags{Language: "eng"}},
			},
		}, nil
	}

	got, err := p.Probe(context.Background(), "/videos/example.mkv")
	if err != nil {
		t.Fatalf("Probe() unexpected error: %v", err)
	}
	if gotPath != "/videos/example.mkv" {
		t.Errorf("probed path = %q", gotPath)
	}
	want := &Tags{
		Container:      "matroska",
		Duration:       90 * time.Minute,
		VideoCodec:     "h264",
		Width:          1920,
		Height:         1080,
		Resolution:     "1080p",
		Definition:     "HD",
		AudioCodec:     "aac",
		AudioChannels:  6,
		AudioLanguages: []string{"eng", "fre"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Probe() mismatch (-want +got):\n%s", diff)
	}
}

func TestProbeFallsBackToLongCodecName(t *testing.T) {
	p := New(WithTimeout(0))
	p.probe = func(ctx context.Context, path string, extraOpts ...string) (*ffprobeLib.ProbeData, error) {
		return &ffprobeLib.ProbeData{
			Format: &ffprobeLib.Format{},
			Streams: []*ffprobeLib.Stream{
				{CodecLongName: "MPEG-4 part 2", CodecType: string(ffprobeLib.StreamVideo), Width: 720, Height: 576},
			},
		}, nil
	}
	got, err := p.Probe(context.Background(), "/videos/old.avi")
	if err != nil {
		t.Fatalf("Probe() unexpected error: %v", err)
	}
	if got.VideoCodec != "MPEG-4 part 2" || got.Definition != "SD" || got.Resolution != "576p" {
		t.Errorf("Probe() = %+v", got)
	}
	if got.AudioCodec != "" || got.AudioLanguages != nil {
		t.Errorf("unexpected audio tags: %+v", got)
	}
}

func TestProbeErrors(t *testing.T) {
	p := New()
	if _, err := p.Probe(context.Background(), " "); !errors.Is(err, ErrNoPath) {
		t.Errorf("Probe(\"\") error = %v, want ErrNoPath", err)
	}

	boom := errors.New("exit status 1")
	p.probe = func(context.Context, string, ...string) (*ffprobeLib.ProbeData, error) {
		return nil, boom
	}
	if _, err := p.Probe(context.Background(), "/videos/broken.mkv"); !errors.Is(err, boom) {
		t.Errorf("Probe() error = %v, want wrapped %v", err, boom)
	}
}

func TestDefinition(t *testing.T) {
	tests := []struct {
		width int
		want  string
	}{
		{640, "SD"},
		{899, "SD"},
		{900, "HD"},
		{1280, "HD"},
	}
	for _, tt := range tests {
		if got := Definition(tt.width); got != tt.want {
			t.Errorf("Definition(%d) = %q, want %q", tt.width, got, tt.want)
		}
	}
}

func TestResolution(t *testing.T) {
	tests := map[int]string{0: "", 360: "480p", 576: "576p", 720: "720p", 1080: "1080p", 2160: "2160p"}
	for h, want := range tests {
		if got := Resolution(h); got != want {
			t.Errorf("Resolution(%d) = %q, want %q", h, got, want)
		}
	}
}
