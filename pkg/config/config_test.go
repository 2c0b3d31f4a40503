package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.BufferPages != 50 || c.PageSize != 4096 || c.LockTimeout != time.Second {
		t.Errorf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heapstore.hcl")
	src := `
data_dir     = "/var/lib/heapstore"
buffer_pages = 8
lock_timeout = "250ms"
log_format   = "json"
`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.DataDir != "/var/lib/heapstore" || c.BufferPages != 8 ||
		c.LockTimeout != 250*time.Millisecond || c.LogFormat != "json" {
		t.Errorf("unexpected config %+v", c)
	}
	if c.PageSize != 4096 {
		t.Errorf("unset keys keep their defaults, got page_size %d", c.PageSize)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"unknown key", `cache_size = 3`, "not a config variable"},
		{"bad duration", `lock_timeout = "soon"`, "lock_timeout"},
		{"bad format", `log_format = "xml"`, "log_format"},
		{"zero pages", `buffer_pages = 0`, "buffer_pages"},
		{"huge page size", `page_size = 2147483648`, "page_size"},
		{"syntax", `data_dir = `, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.hcl")
			if err := os.WriteFile(path, []byte(tc.src), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if _, err := Load(DefaultConfigFile); err != nil {
		t.Errorf("missing default file should be ignored: %v", err)
	}
	if _, err := Load("other.hcl"); err == nil {
		t.Error("missing explicit file should fail")
	}
}

func TestLoadFile_FlagsWin(t *testing.T) {
	c := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse([]string{"--buffer-pages=3"}); err != nil {
		t.Fatal(err)
	}
	if err := c.load(`buffer_pages = 99
page_size = 1024`, fs); err != nil {
		t.Fatal(err)
	}
	if c.BufferPages != 3 {
		t.Errorf("explicit flag should win, got %d", c.BufferPages)
	}
	if c.PageSize != 1024 {
		t.Errorf("file value should apply to unset flags, got %d", c.PageSize)
	}
}

func TestLogging(t *testing.T) {
	c := Default()
	c.LogLevel = "debug"
	c.LogFile = "/tmp/x.log"
	lc := c.Logging()
	if lc.Level != "DEBUG" || lc.OutputPath != "/tmp/x.log" || lc.Format != "text" {
		t.Errorf("unexpected logging config %+v", lc)
	}
}
