package memory

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats tracks allocation counters and high-water marks per region.
type Stats struct {
	Allocations uint64
	Frees       uint64
	PeakStack   int
	PeakHeap    int
	PeakStatic  int
	PeakTotal   int
}

func (s *Stats) record(region Region, delta int, used [3]int) {
	if delta > 0 {
		s.Allocations++
	}
	switch region {
	case Stack:
		s.PeakStack = max(s.PeakStack, used[Stack])
	case Heap:
		s.PeakHeap = max(s.PeakHeap, used[Heap])
	case Static:
		s.PeakStatic = max(s.PeakStatic, used[Static])
	}
	s.PeakTotal = max(s.PeakTotal, used[Stack]+used[Heap]+used[Static])
}

func (s Stats) String() string {
	return fmt.Sprintf("peak %s (stack %s, heap %s, static %s), %s allocations, %s frees",
		humanize.IBytes(uint64(s.PeakTotal)),
		humanize.IBytes(uint64(s.PeakStack)),
		humanize.IBytes(uint64(s.PeakHeap)),
		humanize.IBytes(uint64(s.PeakStatic)),
		humanize.Comma(int64(s.Allocations)),
		humanize.Comma(int64(s.Frees)))
}

// Stats returns a snapshot of the counters.
func (m *Memory) Stats() Stats {
	return m.stats
}

// InUse returns the live bytes of a region.
func (m *Memory) InUse(r Region) int {
	return m.used[r]
}
