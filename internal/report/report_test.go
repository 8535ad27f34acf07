package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/woozymasta/srcquery/internal/a2s"
)

func TestInfo(t *testing.T) {
	port := uint16(27015)
	keywords := "secure, ,cs2"

	var buf bytes.Buffer
	info := &a2s.ServerInfo{
		Name:        "Test",
		Map:         "de_dust2",
		Players:     3,
		MaxPlayers:  16,
		Bots:        1,
		ServerType:  a2s.ServerTypeDedicated,
		Environment: a2s.EnvironmentLinux,
		GamePort:    &port,
		Keywords:    &keywords,
	}

	if err := New(&buf, false).Info(info); err != nil {
		t.Fatalf("Info: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"name:        Test\n",
		"players:     3/16 (1 bots)\n",
		"visibility:  public\n",
		"game port:   27015\n",
		"steam id:    -\n",
		"keywords:    secure, cs2\n",
		"game id:     -\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "\x1b[") {
		t.Errorf("colors written while disabled:\n%s", out)
	}
}

func TestInfoKeywords(t *testing.T) {
	empty := ""
	tags := "a,b"

	tests := []struct {
		name     string
		keywords *string
		want     string
	}{
		{"absent", nil, "keywords:    -\n"},
		{"empty", &empty, "keywords:    \n"},
		{"tags", &tags, "keywords:    a, b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := New(&buf, false).Info(&a2s.ServerInfo{Keywords: tt.keywords}); err != nil {
				t.Fatalf("Info: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			// keywords stay between sourcetv and game id
			if k, g := strings.Index(out, "keywords:"), strings.Index(out, "game id:"); k < 0 || g < k {
				t.Errorf("keywords row out of place:\n%s", out)
			}
		})
	}
}

func TestRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, false).Raw(a2s.KindPing, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x6A, 0x00}); err != nil {
		t.Fatalf("Raw: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "ping: 6 bytes\n") {
		t.Errorf("header: %q", out)
	}
	if !strings.Contains(out, "ff ff ff ff 6a 00") {
		t.Errorf("dump: %q", out)
	}
}

func TestColored(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, true).Raw(a2s.KindRules, nil); err != nil {
		t.Fatalf("Raw: %v", err)
	}

	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected escape codes: %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, &a2s.ServerInfo{Name: "J", Environment: a2s.EnvironmentMac}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"name": "J"`) || !strings.Contains(out, `"environment": "mac"`) {
		t.Errorf("json: %s", out)
	}
}
