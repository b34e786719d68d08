package model

import "testing"

func TestOptionsStages(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{name: "all phases", opts: Options{}, want: 3},
		{name: "no partition slack", opts: Options{NoPart: true}, want: 2},
		{name: "free space only", opts: Options{NoPart: true, NoUnrm: true}, want: 1},
		{name: "nothing left", opts: Options{NoPart: true, NoUnrm: true, NoWfs: true}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Stages(); got != tt.want {
				t.Errorf("Stages() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOptionsBinary(t *testing.T) {
	if got := (Options{}).Binary(); got != DefaultWfsPath {
		t.Errorf("Binary() = %q, want %q", got, DefaultWfsPath)
	}
	if got := (Options{WfsPath: "/opt/wfs"}).Binary(); got != "/opt/wfs" {
		t.Errorf("Binary() = %q, want /opt/wfs", got)
	}
}

func TestWithFilesystemsDoesNotAlias(t *testing.T) {
	base := Options{Filesystems: make([]string, 1, 4)}
	base.Filesystems[0] = "/dev/sda1"

	a := base.WithFilesystems("/dev/sdb1")
	b := base.WithFilesystems("/dev/sdc1", "")

	if len(a.Filesystems) != 2 || a.Filesystems[1] != "/dev/sdb1" {
		t.Errorf("a.Filesystems = %v", a.Filesystems)
	}
	if len(b.Filesystems) != 2 || b.Filesystems[1] != "/dev/sdc1" {
		t.Errorf("b.Filesystems = %v", b.Filesystems)
	}
	if len(base.Filesystems) != 1 {
		t.Errorf("base modified: %v", base.Filesystems)
	}
}
