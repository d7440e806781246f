package testing

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/petlaDB/lib/db"
)

// DBFactory creates a new, empty instance of a KVDB implementation.
// It receives the test so file or server backed engines can use t.TempDir and t.Cleanup.
type DBFactory func(t testing.TB) db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(t))
		})

		t.Run("SetIfUnset", func(t *testing.T) {
			testSetIfUnset(t, factory(t))
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory(t))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustSet(t testing.TB, database db.KVDB, key string, value []byte) {
	t.Helper()
	if err := database.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(t testing.TB, database db.KVDB, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, database, testKey, testValue1)

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, database, testKey, testValue2)

	result, exists = mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = mustGet(t, database, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// returned values must be copies
	retrievedValue, _ := mustGet(t, database, testKey)
	retrievedValue[0] = 'X'
	originalValue, _ := mustGet(t, database, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	// the stored value must not alias the caller's slice
	input := []byte("mutable")
	mustSet(t, database, "alias", input)
	input[0] = 'X'
	stored, _ := mustGet(t, database, "alias")
	if string(stored) != "mutable" {
		t.Errorf("Set should copy the value, got %s", stored)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	mustSet(t, database, "delete-key", []byte("delete-value"))

	if err := database.Delete("delete-key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, exists := mustGet(t, database, "delete-key"); exists {
		t.Errorf("Expected key to be deleted")
	}

	// deleting a missing key is a no-op
	if err := database.Delete("never-existed"); err != nil {
		t.Errorf("Delete of a missing key should not fail: %v", err)
	}

	// a deleted key can be written again
	mustSet(t, database, "delete-key", []byte("again"))
	if value, exists := mustGet(t, database, "delete-key"); !exists || string(value) != "again" {
		t.Errorf("Expected key to be writable after delete, got %q (exists=%v)", value, exists)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	mustSet(t, database, "has-key", []byte("x"))

	if ok, err := database.Has("has-key"); err != nil || !ok {
		t.Errorf("Expected Has to return true (err=%v)", err)
	}
	if ok, err := database.Has("missing"); err != nil || ok {
		t.Errorf("Expected Has to return false for a missing key (err=%v)", err)
	}

	_ = database.Delete("has-key")
	if ok, _ := database.Has("has-key"); ok {
		t.Errorf("Expected Has to return false after delete")
	}
}

func testSetIfUnset(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetIfUnset|db.FeatureGet)

	ok, err := database.SetIfUnset("cas-key", []byte("first"))
	if err != nil || !ok {
		t.Fatalf("Expected first SetIfUnset to succeed (ok=%v, err=%v)", ok, err)
	}

	ok, err = database.SetIfUnset("cas-key", []byte("second"))
	if err != nil || ok {
		t.Fatalf("Expected second SetIfUnset to be rejected (ok=%v, err=%v)", ok, err)
	}

	if value, _ := mustGet(t, database, "cas-key"); string(value) != "first" {
		t.Errorf("Expected the first value to be kept, got %s", value)
	}

	// concurrent callers: exactly one wins
	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if ok, err := database.SetIfUnset("race-key", []byte(fmt.Sprint(i))); err == nil && ok {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if winners.Load() != 1 {
		t.Errorf("Expected exactly one winner, got %d", winners.Load())
	}
}

func testRange(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureRange)

	want := map[string]string{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("range-%02d", i)
		want[key] = fmt.Sprintf("value-%d", i)
		mustSet(t, database, key, []byte(want[key]))
	}

	got := map[string]string{}
	if err := database.Range(func(key string, value []byte) bool {
		got[key] = string(value)
		return true
	}); err != nil {
		t.Fatalf("Range failed: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Range: key %s expected %s, got %s", k, v, got[k])
		}
	}

	// early stop
	visited := 0
	_ = database.Range(func(string, []byte) bool {
		visited++
		return visited < 5
	})
	if visited != 5 {
		t.Errorf("Expected Range to stop after 5 entries, visited %d", visited)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	source := factory(t)
	defer source.Close()

	requireFeature(t, source, db.FeatureSave|db.FeatureLoad|db.FeatureSet|db.FeatureGet)

	keys := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("save-%03d", i)
		keys = append(keys, key)
		mustSet(t, source, key, []byte(fmt.Sprintf("value-%d", i)))
	}

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	snapshot := buf.Bytes()

	target := factory(t)
	defer target.Close()

	// existing content of the target is replaced
	mustSet(t, target, "stale", []byte("x"))

	if err := target.Load(bytes.NewReader(snapshot)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for i, key := range keys {
		value, ok := mustGet(t, target, key)
		if !ok || string(value) != fmt.Sprintf("value-%d", i) {
			t.Errorf("Expected %s to be restored, got %q (ok=%v)", key, value, ok)
		}
	}
	if _, ok := mustGet(t, target, "stale"); ok {
		t.Errorf("Expected Load to replace the previous content")
	}

	// a broken snapshot is rejected
	if err := target.Load(bytes.NewReader([]byte("garbage"))); err == nil {
		t.Errorf("Expected Load of a broken snapshot to fail")
	}
	if _, ok := mustGet(t, target, keys[0]); !ok {
		t.Errorf("Expected a failed Load to keep the previous content")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	// empty value
	mustSet(t, database, "empty-value", []byte{})
	if value, ok := mustGet(t, database, "empty-value"); !ok || len(value) != 0 {
		t.Errorf("Expected empty value to be stored, got %q (ok=%v)", value, ok)
	}

	// binary data
	binary := []byte{0x00, 0xff, 0x10, 0x00, 0x7f}
	mustSet(t, database, "binary", binary)
	if value, _ := mustGet(t, database, "binary"); !bytes.Equal(value, binary) {
		t.Errorf("Expected binary value to round trip, got %v", value)
	}

	// unicode keys and keys that look like the document store layout
	for _, key := range []string{"schlüssel_ü", "petla_db_collection_pets_1", "a.b.c", "with space"} {
		mustSet(t, database, key, []byte(key))
		if value, ok := mustGet(t, database, key); !ok || string(value) != key {
			t.Errorf("Expected key %q to round trip, got %q", key, value)
		}
	}

	// large value
	large := bytes.Repeat([]byte("x"), 1<<20)
	mustSet(t, database, "large", large)
	if value, _ := mustGet(t, database, "large"); len(value) != len(large) {
		t.Errorf("Expected large value of %d bytes, got %d", len(large), len(value))
	}
}

func testConcurrency(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureRange)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				if err := database.Set(key, []byte(key)); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if value, ok, err := database.Get(key); err != nil || !ok || string(value) != key {
					t.Errorf("Get(%s) = %q, %v, %v", key, value, ok, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	var keys []string
	_ = database.Range(func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	if len(keys) != workers*perWorker {
		t.Errorf("Expected %d keys, got %d", workers*perWorker, len(keys))
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	for i := 0; i < 10; i++ {
		mustSet(t, database, fmt.Sprintf("info-%d", i), []byte("0123456789"))
	}

	info := database.GetInfo()
	if info.Keys != 10 {
		t.Errorf("Expected info to report 10 keys, got %d", info.Keys)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size, got %d", info.SizeBytes)
	}
	if info.DbType == "" {
		t.Errorf("Expected the implementation type to be set")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Feature %s is listed but SupportsFeature returns false", f)
		}
	}
}
