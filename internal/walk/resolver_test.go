package walk

import (
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveSeedsConcurrentMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	var seeds []seed
	for i := 0; i < 23; i++ {
		name := fmt.Sprintf("f%02d", i)
		mustWriteFile(t, filepath.Join(dir, name), i)
		seeds = append(seeds, seed{path: filepath.Join(dir, name), name: name, hint: TypeFile})
	}
	seeds = append(seeds, seed{path: filepath.Join(dir, "missing"), name: "missing", hint: TypeFile})

	want := resolveSeeds(seeds, 1)
	for _, workers := range []int{2, 3, 8, 24, 100} {
		got := resolveSeeds(seeds, workers)
		if len(got) != len(want) {
			t.Fatalf("workers=%d: got %d results, want %d", workers, len(got), len(want))
		}
		for i := range want {
			if !reflect.DeepEqual(got[i], want[i]) {
				t.Errorf("workers=%d: result %d differs:\n got %+v\nwant %+v", workers, i, got[i], want[i])
			}
		}
	}
}

func TestResolveSeedsEmpty(t *testing.T) {
	if got := resolveSeeds(nil, 4); len(got) != 0 {
		t.Errorf("got %d results for no seeds", len(got))
	}
}

func TestClampWorkers(t *testing.T) {
	tests := map[int]int{-3: 1, 0: 1, 1: 1, 16: 16, MaxWorkers: MaxWorkers, 10000: MaxWorkers}
	for in, want := range tests {
		if got := ClampWorkers(in); got != want {
			t.Errorf("ClampWorkers(%d) = %d, want %d", in, got, want)
		}
	}
}
