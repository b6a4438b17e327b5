package ternary

import (
	"fmt"
	"sort"
)

// Frequencies maps n-symbol windows to occurrence counts. Keys are
// directional: "th" and "ht" are distinct.
type Frequencies map[string]int64

// Total returns the sum of all counts.
func (f Frequencies) Total() int64 {
	var total int64
	for _, v := range f {
		total += v
	}
	return total
}

// Validate rejects negative counts.
func (f Frequencies) Validate() error {
	for _, k := range f.Keys() {
		if f[k] < 0 {
			return fmt.Errorf("negative count %d for %q", f[k], k)
		}
	}
	return nil
}

// Keys returns the keys in sorted order.
func (f Frequencies) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
