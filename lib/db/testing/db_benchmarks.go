package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/petlaDB/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementation
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory(b))
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory(b))
		})

		b.Run("Has", func(b *testing.B) {
			benchmarkHas(b, factory(b))
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, factory(b))
		})

		b.Run("Range", func(b *testing.B) {
			benchmarkRange(b, factory(b))
		})

		b.Run("SaveLoad", func(b *testing.B) {
			benchmarkSaveLoad(b, factory)
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var counter atomic.Int64
	value := []byte("value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = database.Set(fmt.Sprintf("set-%d", counter.Add(1)), value)
		}
	})
}

func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	const keyCount = 1000
	keys := make([]string, keyCount)
	for i := range keys {
		keys[i] = fmt.Sprintf("existing-%d", i)
		_ = database.Set(keys[i], []byte("initial"))
	}
	value := []byte("updated")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = database.Set(keys[i%keyCount], value)
			i++
		}
	})
}

func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := bytes.Repeat([]byte("x"), 64*1024)
	var counter atomic.Int64

	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = database.Set(fmt.Sprintf("large-%d", counter.Add(1)%128), value)
		}
	})
}

func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	const keyCount = 1000
	keys := make([]string, keyCount)
	for i := range keys {
		keys[i] = fmt.Sprintf("get-%d", i)
		_ = database.Set(keys[i], []byte(keys[i]))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			_, _, _ = database.Get(keys[r.Intn(keyCount)])
		}
	})
}

func benchmarkDelete(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureDelete)

	for i := 0; i < b.N; i++ {
		_ = database.Set(fmt.Sprintf("del-%d", i), []byte("x"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Delete(fmt.Sprintf("del-%d", i))
	}
}

func benchmarkHas(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureHas)

	const keyCount = 1000
	keys := make([]string, keyCount)
	for i := range keys {
		keys[i] = fmt.Sprintf("has-%d", i)
		_ = database.Set(keys[i], []byte("x"))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = database.Has(keys[i%keyCount])
			i++
		}
	})
}

func benchmarkHasNot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHas)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = database.Has(fmt.Sprintf("missing-%d", i))
			i++
		}
	})
}

func benchmarkRange(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureRange)

	for i := 0; i < 1000; i++ {
		_ = database.Set(fmt.Sprintf("range-%d", i), []byte("value"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Range(func(string, []byte) bool { return true })
	}
}

func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	source := factory(b)
	b.Cleanup(func() {
		source.Close()
	})

	requireFeature(b, source, db.FeatureSet|db.FeatureSave|db.FeatureLoad)

	for i := 0; i < 10000; i++ {
		_ = source.Set(fmt.Sprintf("snap-%d", i), []byte(fmt.Sprintf("value-%d", i)))
	}

	var snapshot bytes.Buffer
	if err := source.Save(&snapshot); err != nil {
		b.Fatalf("Save failed: %v", err)
	}

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			_ = source.Save(&buf)
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := factory(b)
		b.Cleanup(func() {
			target.Close()
		})
		for i := 0; i < b.N; i++ {
			_ = target.Load(bytes.NewReader(snapshot.Bytes()))
		}
	})
}

// Mixed workload modelled after the document store: mostly reads, some writes,
// occasional deletes and conditional writes.
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureSetIfUnset)

	const keyCount = 1000
	keys := make([]string, keyCount)
	for i := range keys {
		keys[i] = fmt.Sprintf("mixed-%d", i)
		_ = database.Set(keys[i], []byte("value"))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := keys[r.Intn(keyCount)]
			switch op := r.Intn(100); {
			case op < 70:
				_, _, _ = database.Get(key)
			case op < 90:
				_ = database.Set(key, []byte("value"))
			case op < 95:
				_ = database.Delete(key)
			default:
				_, _ = database.SetIfUnset(key, []byte("value"))
			}
		}
	})
}
