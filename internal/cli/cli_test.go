package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tddebugger/internal/cli"
)

func TestFindClosest(t *testing.T) {
	commands := []string{"watch", "replay", "settings", "history", "targets", "version", "help"}
	tests := []struct {
		in   string
		want string
	}{
		{"wacth", "watch"},
		{"setings", "settings"},
		{"histroy", "history"},
		{"zzzzzzzzzz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := cli.FindClosest(tt.in, commands); got != tt.want {
				t.Errorf("FindClosest(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnknownCommandError(t *testing.T) {
	err := cli.UnknownCommandError("replya", []string{"replay", "watch"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "replay"`) {
		t.Errorf("错误信息缺少建议: %v", err)
	}
	err = cli.UnknownSubcommandError("history", "qqqqqqq", []string{"show"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("不应给出建议: %v", err)
	}
}

func TestParsePair(t *testing.T) {
	a, b, err := cli.ParsePair(" 3, 7")
	if err != nil || a != 3 || b != 7 {
		t.Errorf("ParsePair = (%d, %d, %v)", a, b, err)
	}
	for _, in := range []string{"3", "3,x", "1,2,3", ""} {
		if _, _, err := cli.ParsePair(in); err == nil {
			t.Errorf("期望解析失败: %q", in)
		}
	}
}

func TestParseSwitch(t *testing.T) {
	for in, want := range map[string]bool{"on": true, "OFF": false, "true": true, "0": false} {
		got, err := cli.ParseSwitch(in)
		if err != nil || got != want {
			t.Errorf("ParseSwitch(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := cli.ParseSwitch("maybe"); err == nil {
		t.Error("期望解析失败")
	}
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")
	if err := os.WriteFile(path, []byte("secret => [X]"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := cli.ReadInput(path)
	if err != nil || got != "secret => [X]" {
		t.Errorf("ReadInput = %q, %v", got, err)
	}
	if _, err := cli.ReadInput(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("缺失文件应返回错误")
	}
}
