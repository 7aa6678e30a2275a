package hardware

import "testing"

const gb = 1024 * 1024 * 1024

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		threads int
		ram     uint64
		want    Class
	}{
		{"small laptop", 4, 8 * gb, ClassLaptop},
		{"beefy laptop", 8, 16 * gb, ClassDesktop},
		{"workstation", 12, 64 * gb, ClassDesktop},
		{"build server", 32, 128 * gb, ClassServer},
		{"many threads low ram", 32, 16 * gb, ClassDesktop},
	}

	for _, tt := range tests {
		info := &Info{CPUThreads: tt.threads, RAMBytes: tt.ram}
		if got := info.Classify(); got != tt.want {
			t.Errorf("%s: Classify() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	info, err := Detect()
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if info.CPUThreads < 1 {
		t.Errorf("threads = %d", info.CPUThreads)
	}
	if info.RAMBytes == 0 {
		t.Error("expected nonzero RAM")
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("missing OS/arch: %+v", info)
	}
}

func TestFormatRAM(t *testing.T) {
	if got := FormatRAM(16 * gb); got != "16.0 GB" {
		t.Errorf("FormatRAM = %q, want 16.0 GB", got)
	}
}
