package idgen

import (
	"testing"
)

// ========================================
// Snowflake Benchmark
// ========================================

func BenchmarkSnowflake_NextID(b *testing.B) {
	sf, _ := NewSnowflake(1, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sf.NextID()
	}
}

func BenchmarkSnowflake_NextID_Parallel(b *testing.B) {
	sf, _ := NewSnowflake(1, 1)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = sf.NextID()
		}
	})
}

func BenchmarkDecode(b *testing.B) {
	id := pack(1000, 1, 1, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Decode(id, DefaultEpoch)
	}
}
