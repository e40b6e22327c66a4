package daemon

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fakeSystemctl records calls instead of running systemctl.
func fakeSystemctl(t *testing.T) *[][]string {
	t.Helper()

	var calls [][]string
	orig := systemctl
	systemctl = func(args ...string) error {
		calls = append(calls, args)
		return nil
	}
	t.Cleanup(func() { systemctl = orig })
	return &calls
}

func useUnitPath(t *testing.T) string {
	t.Helper()

	orig := unitPath
	unitPath = filepath.Join(t.TempDir(), "system", unitName)
	t.Cleanup(func() { unitPath = orig })
	return unitPath
}

func TestRenderUnit(t *testing.T) {
	unit := renderUnit("/usr/local/bin/inamon", "/etc/inamon.yaml", "/run/inamon.sock")

	want := "ExecStart=/usr/local/bin/inamon daemon --config /etc/inamon.yaml --daemon-socket /run/inamon.sock"
	if !strings.Contains(unit, want) {
		t.Errorf("unit missing %q:\n%s", want, unit)
	}
	if strings.Contains(unit, "/path/to/") {
		t.Errorf("unit has unreplaced placeholders:\n%s", unit)
	}
}

func TestInstallUninstall(t *testing.T) {
	calls := fakeSystemctl(t)
	path := useUnitPath(t)

	if err := Install("/etc/inamon.json", "/run/inamon.sock"); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unit not written: %v", err)
	}
	if !strings.Contains(string(b), "--config /etc/inamon.json") {
		t.Errorf("unit content:\n%s", b)
	}

	if err := Uninstall(); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("unit still present: %v", err)
	}

	want := [][]string{
		{"daemon-reload"},
		{"enable", "--now", unitName},
		{"disable", "--now", unitName},
		{"daemon-reload"},
	}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("systemctl calls = %v, want %v", *calls, want)
	}
}
