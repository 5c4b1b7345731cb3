package walk

import (
	"github.com/sourcegraph/conc"
)

// seed is what the directory listing captured for one child before its
// metadata is resolved.
type seed struct {
	path string
	name string
	hint FileType
}

// resolveSeeds resolves every seed and returns the results in seed order.
// With more than one worker the seeds are split into contiguous chunks, one
// goroutine per chunk, joined before returning.
func resolveSeeds(seeds []seed, workers int) []*EntryMeta {
	out := make([]*EntryMeta, len(seeds))
	if workers <= 1 || len(seeds) <= 1 {
		for i, s := range seeds {
			out[i] = Resolve(s.path, s.name, s.hint)
		}
		return out
	}

	chunk := (len(seeds) + workers - 1) / workers
	var wg conc.WaitGroup
	for start := 0; start < len(seeds); start += chunk {
		end := min(start+chunk, len(seeds))
		part, dst := seeds[start:end], out[start:end]
		wg.Go(func() {
			for i, s := range part {
				dst[i] = Resolve(s.path, s.name, s.hint)
			}
		})
	}
	wg.Wait()
	return out
}
