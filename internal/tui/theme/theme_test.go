package theme

import (
	"runtime"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
)

// iconNames are the icons the batch view renders.
var iconNames = []string{"search", "resolved", "failed", "stats", "workers", "arrow", "bullet"}

func TestIconSetsCoverBatchView(t *testing.T) {
	for _, ascii := range []bool{false, true} {
		th := New(ascii)
		for _, name := range iconNames {
			if th.Icon(name) == "" {
				t.Errorf("New(%v).Icon(%q) is empty", ascii, name)
			}
		}
	}
	if got := New(true).Icon("unknown"); got != "" {
		t.Errorf("Icon(unknown) = %q, want empty", got)
	}
}

func TestDefaultFollowsTerminal(t *testing.T) {
	t.Setenv("SSH_CLIENT", "")
	t.Setenv("SSH_TTY", "")
	t.Setenv("SSH_CONNECTION", "")
	want := "✅"
	if runtime.GOOS == "windows" {
		want = "[v]"
	}
	if got := Default().Icon("resolved"); got != want {
		t.Errorf("local Default().Icon(resolved) = %q, want %q", got, want)
	}

	t.Setenv("SSH_TTY", "/dev/pts/3")
	if got := Default().Icon("resolved"); got != "[v]" {
		t.Errorf("ssh Default().Icon(resolved) = %q, want [v]", got)
	}
}

func TestStylesUsePalette(t *testing.T) {
	th := New(true)
	p := th.Colors()

	type look struct {
		Bold       bool
		Background lipgloss.TerminalColor
		Foreground lipgloss.TerminalColor
	}
	header := th.HeaderStyle()
	status := th.StatusBarStyle()
	got := []look{
		{header.GetBold(), header.GetBackground(), header.GetForeground()},
		{status.GetBold(), status.GetBackground(), status.GetForeground()},
	}
	want := []look{
		{true, p.Primary, p.Background},
		{false, p.Secondary, p.Background},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("style colors mismatch (-want +got)\n%s", diff)
	}
	if got := header.GetAlignHorizontal(); got != lipgloss.Center {
		t.Errorf("header alignment = %v, want center", got)
	}
	if got := th.PanelStyle().GetBorderTopForeground(); got != p.Accent {
		t.Errorf("panel border = %v, want %v", got, p.Accent)
	}
}

func TestProgressGradient(t *testing.T) {
	got := New(false).ProgressGradient()
	if diff := cmp.Diff([]string{"#2f4f7a", "#7fb2e5"}, got); diff != "" {
		t.Errorf("ProgressGradient() mismatch (-want +got)\n%s", diff)
	}
}
