package docstore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/db/engines/maple"
	"github.com/ValentinKolb/petlaDB/lib/document"
	"github.com/ValentinKolb/petlaDB/lib/lockmgr"
	"github.com/ValentinKolb/petlaDB/lib/store"
	"github.com/ValentinKolb/petlaDB/lib/store/lstore"
	"github.com/google/go-cmp/cmp"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// fakeClock advances by one millisecond on every call
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestStore(t *testing.T, quota int64) lstore.LocalStore {
	t.Helper()
	st, err := lstore.NewLocalStore(func() (db.KVDB, error) {
		return maple.NewMapleDB(nil), nil
	}, &lstore.Options{Quota: quota})
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return st
}

func newTestDBOn(t *testing.T, st store.IStore, configure ...func(*Options)) *Database {
	t.Helper()
	opts := DefaultOptions()
	opts.Now = newFakeClock().Now
	for _, fn := range configure {
		fn(opts)
	}
	database, err := New(st, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return database
}

func newTestDB(t *testing.T, configure ...func(*Options)) *Database {
	t.Helper()
	return newTestDBOn(t, newTestStore(t, 0), configure...)
}

var cmpDocs = cmp.Comparer(document.Equal)

func mustInsert(t *testing.T, database *Database, collection string, fields document.Fields) document.Document {
	t.Helper()
	doc, err := database.InsertOne(collection, fields)
	if err != nil {
		t.Fatalf("InsertOne(%s) failed: %v", collection, err)
	}
	return doc
}

func mustFind(t *testing.T, database *Database, collection string, filter Filter, opts *FindOptions) []document.Document {
	t.Helper()
	docs, err := database.Find(collection, filter, opts)
	if err != nil {
		t.Fatalf("Find(%s) failed: %v", collection, err)
	}
	return docs
}

func mustCount(t *testing.T, database *Database, collection string, filter Filter) int {
	t.Helper()
	n, err := database.Count(collection, filter)
	if err != nil {
		t.Fatalf("Count(%s) failed: %v", collection, err)
	}
	return n
}

func fieldValues(docs []document.Document, field string) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Lookup(field).String()
	}
	return out
}

func ids(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestNew(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("New(nil) should fail with ErrInvalidArgument, got %v", err)
	}

	st := newTestStore(t, 0)
	database, err := New(st, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if database.Name() != DefaultName {
		t.Errorf("Name() = %s, want %s", database.Name(), DefaultName)
	}
	if ok, _ := st.Has("petla_db_metadata"); !ok {
		t.Errorf("metadata should be created on open")
	}

	// reopening keeps the metadata
	stats, _ := database.GetStats()
	again, err := New(st, nil)
	if err != nil {
		t.Fatal(err)
	}
	statsAgain, _ := again.GetStats()
	if !stats.CreatedAt.Equal(statsAgain.CreatedAt) {
		t.Errorf("reopening changed createdAt from %v to %v", stats.CreatedAt, statsAgain.CreatedAt)
	}
}

func TestCollections(t *testing.T) {
	database := newTestDB(t)

	for _, name := range []string{"usuarios", "mascotas", "usuarios", "citas"} {
		if err := database.CreateCollection(name); err != nil {
			t.Fatalf("CreateCollection(%s) failed: %v", name, err)
		}
	}
	names, err := database.ListCollections()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"usuarios", "mascotas", "citas"}, names); diff != "" {
		t.Errorf("ListCollections() mismatch (-want +got):\n%s", diff)
	}

	if err := database.CreateCollection(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty name should fail with ErrInvalidArgument, got %v", err)
	}

	// inserting creates the collection
	mustInsert(t, database, "notificaciones", f("mensaje", "hola"))
	names, _ = database.ListCollections()
	if names[len(names)-1] != "notificaciones" {
		t.Errorf("insert should create the collection, got %v", names)
	}
}

func TestDropCollectionCascades(t *testing.T) {
	st := newTestStore(t, 0)
	database := newTestDBOn(t, st)

	if err := database.CreateIndex("mascotas", "chip", IndexOptions{Unique: true}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		mustInsert(t, database, "mascotas", f("chip", fmt.Sprintf("C%d", i)))
	}
	mustInsert(t, database, "citas", f("estado", "aceptada"))

	if err := database.DropCollection("mascotas"); err != nil {
		t.Fatalf("DropCollection failed: %v", err)
	}
	keys, _ := st.Keys()
	for _, k := range keys {
		if strings.Contains(k, "mascotas") {
			t.Errorf("key %s survived the drop", k)
		}
	}
	if specs, _ := database.ListIndexes("mascotas"); len(specs) != 0 {
		t.Errorf("index declarations survived the drop: %v", specs)
	}
	if n := mustCount(t, database, "citas", nil); n != 1 {
		t.Errorf("other collections must not be touched, citas has %d documents", n)
	}
	if err := database.DropCollection("mascotas"); err != nil {
		t.Errorf("dropping a missing collection should be a no-op: %v", err)
	}
}

func TestInsertAssignsIDAndTimestamps(t *testing.T) {
	database := newTestDB(t)

	given := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := mustInsert(t, database, "mascotas", f(
		"_id", "mine",
		"nombre", "Max",
		"createdAt", given,
		"updatedAt", "yesterday",
	))

	if doc.ID() == "" || doc.ID() == "mine" {
		t.Errorf("expected a generated id, got %q", doc.ID())
	}
	if doc.CreatedAt().IsZero() || doc.CreatedAt().Equal(given) {
		t.Errorf("expected a generated createdAt, got %v", doc.CreatedAt())
	}
	if !doc.CreatedAt().Equal(doc.UpdatedAt()) {
		t.Errorf("createdAt %v != updatedAt %v", doc.CreatedAt(), doc.UpdatedAt())
	}
	if diff := cmp.Diff([]string{"_id", "createdAt", "updatedAt", "nombre"}, doc.Names()); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}

	stored, found, err := database.FindByID("mascotas", doc.ID())
	if err != nil || !found {
		t.Fatalf("FindByID = %v, %v", found, err)
	}
	if diff := cmp.Diff(doc, stored, cmpDocs); diff != "" {
		t.Errorf("stored document mismatch (-want +got):\n%s", diff)
	}

	seen := map[string]bool{doc.ID(): true}
	docs, err := database.InsertMany("mascotas", slices.Repeat([]document.Fields{f("nombre", "Rex")}, 50))
	if err != nil {
		t.Fatalf("InsertMany failed: %v", err)
	}
	for _, d := range docs {
		if seen[d.ID()] {
			t.Fatalf("duplicate id %s", d.ID())
		}
		seen[d.ID()] = true
	}
}

func TestFindAfterDeleteFromMiddle(t *testing.T) {
	database := newTestDB(t)

	var inserted []document.Document
	for _, name := range []string{"Max", "Rex", "Luna", "Kira"} {
		inserted = append(inserted, mustInsert(t, database, "mascotas", f("nombre", name)))
	}

	ok, err := database.DeleteOne("mascotas", f("nombre", "Rex"))
	if err != nil || !ok {
		t.Fatalf("DeleteOne = %v, %v", ok, err)
	}

	docs := mustFind(t, database, "mascotas", nil, nil)
	if diff := cmp.Diff([]string{`"Max"`, `"Luna"`, `"Kira"`}, fieldValues(docs, "nombre")); diff != "" {
		t.Errorf("Find after delete mismatch (-want +got):\n%s", diff)
	}

	registered, err := database.loadIDs("mascotas")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(registered, ids(docs)); diff != "" {
		t.Errorf("Find must return exactly the registered ids (-want +got):\n%s", diff)
	}

	if _, found, _ := database.FindByID("mascotas", inserted[1].ID()); found {
		t.Errorf("deleted document still found by id")
	}
	if ok, _ := database.DeleteOne("mascotas", f("nombre", "Rex")); ok {
		t.Errorf("second DeleteOne should report false")
	}
	if ok, _ := database.DeleteByID("mascotas", inserted[0].ID()); !ok {
		t.Errorf("DeleteByID should report true")
	}
	if ok, _ := database.DeleteByID("mascotas", "unknown"); ok {
		t.Errorf("DeleteByID of an unknown id should report false")
	}
	if n := mustCount(t, database, "mascotas", nil); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestUpdate(t *testing.T) {
	database := newTestDB(t)

	original := mustInsert(t, database, "mascotas", f(
		"nombre", "Max",
		"dueño", f("nombre", "Ana", "telefono", "123"),
	))

	updated, found, err := database.UpdateOne("mascotas", f("nombre", "Max"), f(
		"_id", "other",
		"createdAt", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		"edad", 3,
		"dueño", f("nombre", "Luis"),
	))
	if err != nil || !found {
		t.Fatalf("UpdateOne = %v, %v", found, err)
	}

	if updated.ID() != original.ID() {
		t.Errorf("_id changed from %s to %s", original.ID(), updated.ID())
	}
	if !updated.CreatedAt().Equal(original.CreatedAt()) {
		t.Errorf("createdAt changed from %v to %v", original.CreatedAt(), updated.CreatedAt())
	}
	if !updated.UpdatedAt().After(original.UpdatedAt()) {
		t.Errorf("updatedAt not refreshed: %v", updated.UpdatedAt())
	}
	if !document.Equal(updated.Get("dueño"), document.MustValue(f("nombre", "Luis"))) {
		t.Errorf("nested documents should be replaced, got %s", updated.Get("dueño"))
	}

	stored, _, _ := database.FindByID("mascotas", original.ID())
	if diff := cmp.Diff(updated, stored, cmpDocs); diff != "" {
		t.Errorf("stored document mismatch (-want +got):\n%s", diff)
	}

	if _, found, err := database.UpdateOne("mascotas", f("nombre", "Nadie"), f("edad", 1)); found || err != nil {
		t.Errorf("UpdateOne without match = %v, %v", found, err)
	}

	mustInsert(t, database, "citas", f("estado", "pendiente"))
	mustInsert(t, database, "citas", f("estado", "pendiente"))
	mustInsert(t, database, "citas", f("estado", "atendida"))
	docs, err := database.UpdateMany("citas", f("estado", "pendiente"), f("estado", "aceptada"))
	if err != nil || len(docs) != 2 {
		t.Fatalf("UpdateMany = %d docs, %v", len(docs), err)
	}
	if n := mustCount(t, database, "citas", f("estado", "aceptada")); n != 2 {
		t.Errorf("Count(aceptada) = %d, want 2", n)
	}
}

func TestDeleteMany(t *testing.T) {
	database := newTestDB(t)
	for i := 0; i < 10; i++ {
		mustInsert(t, database, "notificaciones", f("leida", i%2 == 0, "n", i))
	}

	n, err := database.DeleteMany("notificaciones", f("leida", true))
	if err != nil || n != 5 {
		t.Fatalf("DeleteMany = %d, %v", n, err)
	}
	docs := mustFind(t, database, "notificaciones", nil, nil)
	if diff := cmp.Diff([]string{"1", "3", "5", "7", "9"}, fieldValues(docs, "n")); diff != "" {
		t.Errorf("remaining documents mismatch (-want +got):\n%s", diff)
	}
}

func TestCountEqualsFind(t *testing.T) {
	database := newTestDB(t)
	for i := 0; i < 20; i++ {
		fields := f("n", i, "especie", []string{"perro", "gato", "ave"}[i%3])
		if i%4 == 0 {
			fields.Set("chip", document.String(fmt.Sprintf("C%d", i)))
		}
		mustInsert(t, database, "mascotas", fields)
	}

	for _, filter := range []Filter{
		nil,
		f("especie", "perro"),
		f("n", f("$gte", 10)),
		f("n", f("$gte", 5, "$lt", 15), "especie", f("$ne", "gato")),
		f("chip", f("$exists", true)),
		f("chip", f("$exists", false)),
		f("especie", f("$in", []any{"ave", "gato"})),
		f("especie", f("$regex", "^p")),
		f("especie", "pez"),
	} {
		docs := mustFind(t, database, "mascotas", filter, nil)
		if n := mustCount(t, database, "mascotas", filter); n != len(docs) {
			t.Errorf("Count(%v) = %d, Find returned %d", filter, n, len(docs))
		}
	}
}

func TestGteIsInclusive(t *testing.T) {
	database := newTestDB(t)
	mustInsert(t, database, "citas", f("precio", 100))
	mustInsert(t, database, "citas", f("precio", 99))

	docs := mustFind(t, database, "citas", f("precio", f("$gte", 100)), nil)
	if len(docs) != 1 || docs[0].Lookup("precio").String() != "100" {
		t.Errorf("$gte 100 returned %v", fieldValues(docs, "precio"))
	}
}

func TestSortSkipLimit(t *testing.T) {
	database := newTestDB(t)
	for _, x := range []int{5, 1, 4, 2, 3} {
		mustInsert(t, database, "c", f("x", x))
	}

	docs := mustFind(t, database, "c", nil, &FindOptions{
		Sort:  []SortField{{Field: "x", Order: 1}},
		Skip:  1,
		Limit: 2,
	})
	if diff := cmp.Diff([]string{"2", "3"}, fieldValues(docs, "x")); diff != "" {
		t.Errorf("sort/skip/limit mismatch (-want +got):\n%s", diff)
	}

	mustInsert(t, database, "c", f("x", 3, "y", "b"))
	mustInsert(t, database, "c", f("x", 3, "y", "a"))
	docs = mustFind(t, database, "c", f("x", 3), &FindOptions{
		Sort: []SortField{{Field: "x", Order: -1}, {Field: "y", Order: 1}},
	})
	if diff := cmp.Diff([]string{"<absent>", `"a"`, `"b"`}, fieldValues(docs, "y")); diff != "" {
		t.Errorf("multi key sort mismatch (-want +got):\n%s", diff)
	}

	if _, err := database.Find("c", nil, &FindOptions{Skip: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative skip should fail with ErrInvalidArgument, got %v", err)
	}

	doc, found, err := database.FindOne("c", f("x", f("$gt", 4)))
	if err != nil || !found || doc.Lookup("x").String() != "5" {
		t.Errorf("FindOne = %v, %v, %v", doc, found, err)
	}
	if _, found, _ := database.FindOne("c", f("x", 42)); found {
		t.Errorf("FindOne without match should report false")
	}
}

func TestPetsScenario(t *testing.T) {
	database := newTestDB(t)

	if err := database.CreateCollection("pets"); err != nil {
		t.Fatal(err)
	}
	if err := database.CreateIndex("pets", "chip", IndexOptions{Unique: true}); err != nil {
		t.Fatal(err)
	}
	mustInsert(t, database, "pets", f("nombre", "Max", "chip", "A1"))

	if _, err := database.InsertOne("pets", f("nombre", "Rex", "chip", "A1")); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if n := mustCount(t, database, "pets", nil); n != 1 {
		t.Errorf("Count after rejected insert = %d, want 1", n)
	}

	ok, err := database.DeleteOne("pets", f("nombre", "Max"))
	if err != nil || !ok {
		t.Fatalf("DeleteOne = %v, %v", ok, err)
	}
	if n := mustCount(t, database, "pets", nil); n != 0 {
		t.Errorf("Count after delete = %d, want 0", n)
	}
}

func TestDistinct(t *testing.T) {
	database := newTestDB(t)
	for _, estado := range []string{"aceptada", "aceptada", "atendida"} {
		mustInsert(t, database, "citas", f("estado", estado))
	}
	mustInsert(t, database, "citas", f("motivo", "control"))

	values, err := database.Distinct("citas", "estado", nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, len(values))
	for i, v := range values {
		got[i] = v.String()
	}
	if diff := cmp.Diff([]string{`"aceptada"`, `"atendida"`}, got); diff != "" {
		t.Errorf("Distinct mismatch (-want +got):\n%s", diff)
	}

	values, _ = database.Distinct("citas", "estado", f("estado", f("$ne", "aceptada")))
	if len(values) != 1 {
		t.Errorf("Distinct with filter returned %v", values)
	}
	if _, err := database.Distinct("citas", "", nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty field should fail, got %v", err)
	}
}

func TestMalformedDocumentIsSkipped(t *testing.T) {
	st := newTestStore(t, 0)
	database := newTestDBOn(t, st)

	broken := mustInsert(t, database, "mascotas", f("nombre", "Max"))
	mustInsert(t, database, "mascotas", f("nombre", "Rex"))

	if err := st.Set(database.documentKey("mascotas", broken.ID()), []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	docs := mustFind(t, database, "mascotas", nil, nil)
	if diff := cmp.Diff([]string{`"Rex"`}, fieldValues(docs, "nombre")); diff != "" {
		t.Errorf("Find should skip the malformed document (-want +got):\n%s", diff)
	}
	if n := mustCount(t, database, "mascotas", nil); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if _, found, err := database.FindByID("mascotas", broken.ID()); found || err != nil {
		t.Errorf("FindByID of a malformed document = %v, %v", found, err)
	}
}

func TestStrictOperators(t *testing.T) {
	strict := newTestDB(t, func(o *Options) { o.StrictOperators = true })
	legacy := newTestDB(t)

	for _, database := range []*Database{strict, legacy} {
		mustInsert(t, database, "mascotas", f("edad", 3, "dueño", f("nombre", "Ana")))
	}

	if _, err := strict.Find("mascotas", f("edad", f("$foo", 3)), nil); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("strict: unknown operator should fail, got %v", err)
	}
	if n := mustCount(t, legacy, "mascotas", f("edad", f("$foo", 3))); n != 1 {
		t.Errorf("legacy: unknown operator should compare by equality, count = %d", n)
	}

	if n := mustCount(t, strict, "mascotas", f("dueño", f("nombre", "Ana"))); n != 1 {
		t.Errorf("strict: literal sub document should match, count = %d", n)
	}
	if _, err := legacy.Find("mascotas", f("nombre", f("$regex", "[")), nil); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("legacy: invalid regex should fail, got %v", err)
	}
}

func TestQuotaErrorPropagates(t *testing.T) {
	st := newTestStore(t, 4*1024)
	database := newTestDBOn(t, st)
	if err := database.CreateIndex("mascotas", "n", IndexOptions{}); err != nil {
		t.Fatal(err)
	}

	var (
		inserted int
		err      error
	)
	for i := 0; i < 1000; i++ {
		if _, err = database.InsertOne("mascotas", f("n", i, "notas", strings.Repeat("x", 100))); err != nil {
			break
		}
		inserted++
	}
	if err == nil {
		t.Fatal("expected the quota to be exceeded")
	}
	if !errors.Is(err, ErrStorage) || !store.IsQuotaExceeded(err) {
		t.Fatalf("expected a storage error caused by the quota, got %v", err)
	}

	if n := mustCount(t, database, "mascotas", nil); n != inserted {
		t.Errorf("Count = %d, want %d", n, inserted)
	}

	// the rejected document must not leave a blob behind
	keys, _ := st.Keys()
	blobs := 0
	for _, k := range keys {
		if strings.HasPrefix(k, database.collectionKey("mascotas")+"_") {
			blobs++
		}
	}
	if blobs != inserted {
		t.Errorf("found %d document blobs for %d documents", blobs, inserted)
	}
}

func TestGetStats(t *testing.T) {
	database := newTestDB(t)
	mustInsert(t, database, "usuarios", f("email", "a@petla.com"))
	mustInsert(t, database, "usuarios", f("email", "b@petla.com"))
	mustInsert(t, database, "citas", f("estado", "aceptada"))
	if err := database.CreateIndex("usuarios", "email", IndexOptions{Unique: true}); err != nil {
		t.Fatal(err)
	}

	stats, err := database.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Database != DefaultName || stats.Version != Version {
		t.Errorf("unexpected identity %s %s", stats.Database, stats.Version)
	}
	if stats.Collections != 2 || stats.TotalDocuments != 3 {
		t.Errorf("Collections = %d, TotalDocuments = %d", stats.Collections, stats.TotalDocuments)
	}
	usuarios := stats.CollectionStats["usuarios"]
	if usuarios.Documents != 2 || usuarios.Indexes != 1 || usuarios.StorageSize <= 0 {
		t.Errorf("usuarios stats = %+v", usuarios)
	}
	if stats.StorageSize != usuarios.StorageSize+stats.CollectionStats["citas"].StorageSize {
		t.Errorf("StorageSize %d is not the sum of the collections", stats.StorageSize)
	}
	if stats.LastBackup != nil {
		t.Errorf("LastBackup should be nil before the first backup")
	}
}

func TestAdvisoryLock(t *testing.T) {
	st := newTestStore(t, 0)
	locker := lockmgr.NewLockManager(st)
	database := newTestDBOn(t, st, func(o *Options) {
		o.Locker = locker
		o.LockTimeout = 50 * time.Millisecond
	})

	mustInsert(t, database, "mascotas", f("nombre", "Max"))
	if ok, _ := st.Has(database.lockKey()); ok {
		t.Errorf("lock should be released after the operation")
	}

	ok, owner, err := locker.AcquireLock(database.lockKey(), time.Minute)
	if err != nil || !ok {
		t.Fatalf("AcquireLock = %v, %v", ok, err)
	}
	_, err = database.Count("mascotas", nil)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, lockmgr.ErrLockTimeout) {
		t.Errorf("expected a lock timeout, got %v", err)
	}

	if _, err := locker.ReleaseLock(database.lockKey(), owner); err != nil {
		t.Fatal(err)
	}
	if n := mustCount(t, database, "mascotas", nil); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestConcurrentInserts(t *testing.T) {
	database := newTestDB(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := database.InsertOne("citas", f("g", g, "i", i)); err != nil {
					t.Errorf("InsertOne failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	docs := mustFind(t, database, "citas", nil, nil)
	if len(docs) != 160 {
		t.Fatalf("found %d documents, want 160", len(docs))
	}
	seen := map[string]bool{}
	for _, id := range ids(docs) {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestErrorCodes(t *testing.T) {
	err := newError(CodeDuplicateKey, "value %d", 1)
	if !errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrInvalidQuery) {
		t.Errorf("errors.Is should match by code")
	}
	if !strings.Contains(err.Error(), "DuplicateKey") {
		t.Errorf("Error() = %s", err.Error())
	}

	cause := store.NewError(store.RetCQuotaExceeded, "full")
	wrapped := storageError(cause, "write")
	var se *store.Error
	if !errors.As(wrapped, &se) || se.Code != store.RetCQuotaExceeded {
		t.Errorf("storage errors should unwrap to the store error")
	}
}

func TestInsertManyStopsAtFirstError(t *testing.T) {
	database := newTestDB(t)
	if err := database.CreateIndex("usuarios", "email", IndexOptions{Unique: true}); err != nil {
		t.Fatal(err)
	}

	inserted, err := database.InsertMany("usuarios", []document.Fields{
		f("nombre", "Ana", "email", "ana@petla.com"),
		f("nombre", "Luis", "email", "luis@petla.com"),
		f("nombre", "Otra Ana", "email", "ana@petla.com"),
		f("nombre", "Eva", "email", "eva@petla.com"),
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if diff := cmp.Diff([]string{`"Ana"`, `"Luis"`}, fieldValues(inserted, "nombre")); diff != "" {
		t.Errorf("returned documents (-want +got):\n%s", diff)
	}

	// the documents before the failing one stay committed, the rest is not written
	stored := mustFind(t, database, "usuarios", nil, nil)
	if diff := cmp.Diff(inserted, stored, cmpDocs); diff != "" {
		t.Errorf("stored documents (-want +got):\n%s", diff)
	}
}

func TestUpdateManyStopsAtFirstError(t *testing.T) {
	database := newTestDB(t)
	if err := database.CreateIndex("mascotas", "chip", IndexOptions{Unique: true}); err != nil {
		t.Fatal(err)
	}
	maxDoc := mustInsert(t, database, "mascotas", f("nombre", "Max", "chip", "A1", "grupo", 1))
	luna := mustInsert(t, database, "mascotas", f("nombre", "Luna", "chip", "B2", "grupo", 1))
	toby := mustInsert(t, database, "mascotas", f("nombre", "Toby", "chip", "C3", "grupo", 1))

	// the first match keeps its own chip, the second would take it
	updated, err := database.UpdateMany("mascotas", f("grupo", 1), f("chip", "A1", "revisado", true))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if diff := cmp.Diff([]string{maxDoc.ID()}, ids(updated)); diff != "" {
		t.Errorf("updated documents (-want +got):\n%s", diff)
	}

	stored, _, _ := database.FindByID("mascotas", maxDoc.ID())
	if revisado, _ := stored.Get("revisado").AsBool(); !revisado {
		t.Errorf("first match should be updated: %s", stored.Get("revisado"))
	}
	for _, want := range []document.Document{luna, toby} {
		got, _, _ := database.FindByID("mascotas", want.ID())
		if diff := cmp.Diff(want, got, cmpDocs); diff != "" {
			t.Errorf("document %s should be unchanged (-want +got):\n%s", want.Get("nombre"), diff)
		}
	}
	if n := mustCount(t, database, "mascotas", f("chip", "A1")); n != 1 {
		t.Errorf("chip A1 count = %d, want 1", n)
	}
}
