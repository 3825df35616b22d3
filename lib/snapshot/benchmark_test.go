package snapshot

import (
	"testing"
)

// BenchmarkAcquireReleaseRead measures an uncontended plugin read cycle
func BenchmarkAcquireReleaseRead(b *testing.B) {
	lock := NewSnapshotLock()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := lock.AcquireRead("bench"); err != nil {
			b.Fatal(err)
		}
		if err := lock.ReleaseRead("bench"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAcquireReleaseReadParallel measures read cycles with all
// goroutines hammering the same holder record
func BenchmarkAcquireReleaseReadParallel(b *testing.B) {
	lock := NewSnapshotLock()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := lock.AcquireRead("bench"); err != nil {
				b.Fatal(err)
			}
			if err := lock.ReleaseRead("bench"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkAcquireReleaseCoreRead measures a core task read cycle
// including the per-goroutine counter
func BenchmarkAcquireReleaseCoreRead(b *testing.B) {
	lock := NewSnapshotLock()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := lock.AcquireCoreRead("bench-task"); err != nil {
			b.Fatal(err)
		}
		if err := lock.ReleaseCoreRead("bench-task"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkAcquireWrite measures an uncontended write cycle
func BenchmarkAcquireWrite(b *testing.B) {
	lock := NewSnapshotLock()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !lock.AcquireWrite(0) {
			b.Fatal("uncontended AcquireWrite failed")
		}
		lock.ReleaseWrite()
	}
}
