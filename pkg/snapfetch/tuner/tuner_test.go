package tuner

import (
	"runtime"
	"testing"
)

func TestHashWorkers(t *testing.T) {
	tests := []struct {
		name  string
		cores int
		want  int
	}{
		{"single core gets floor", 1, minHashWorkers},
		{"quad core", 4, 4},
		{"sixteen core", 16, 16},
		{"at the cap", maxHashWorkers, maxHashWorkers},
		{"beyond the cap", 128, maxHashWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashWorkers(SystemResources{CPUCores: tt.cores})
			if got != tt.want {
				t.Errorf("HashWorkers(%d cores) = %d, want %d", tt.cores, got, tt.want)
			}
		})
	}
}

func TestWorkersOverride(t *testing.T) {
	if got := Workers(6); got != 6 {
		t.Errorf("Workers(6) = %d, want 6", got)
	}
	if got := Workers(1000); got != maxHashWorkers {
		t.Errorf("Workers(1000) = %d, want %d", got, maxHashWorkers)
	}
	if got := Workers(0); got < minHashWorkers || got > maxHashWorkers {
		t.Errorf("Workers(0) = %d, outside [%d, %d]", got, minHashWorkers, maxHashWorkers)
	}
}

func TestDetect(t *testing.T) {
	resources := Detect(t.TempDir())
	if resources.CPUCores != runtime.NumCPU() {
		t.Errorf("CPUCores = %d, want %d", resources.CPUCores, runtime.NumCPU())
	}
	// FreeDisk is platform dependent: either a real value or the unknown
	// marker, never zero on a writable temp dir.
	if resources.FreeDisk == 0 {
		t.Error("FreeDisk = 0 for writable temp dir")
	}
}
