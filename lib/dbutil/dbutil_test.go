package dbutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/db"
	"github.com/ValentinKolb/petlaDB/lib/db/engines/maple"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/ValentinKolb/petlaDB/lib/document"
	"github.com/ValentinKolb/petlaDB/lib/store"
	"github.com/ValentinKolb/petlaDB/lib/store/lstore"
	"github.com/stretchr/testify/require"
)

var f = document.MustFields

func newTestStore(t *testing.T, quota int64) lstore.LocalStore {
	t.Helper()
	st, err := lstore.NewLocalStore(func() (db.KVDB, error) {
		return maple.NewMapleDB(nil), nil
	}, &lstore.Options{Quota: quota})
	require.NoError(t, err)
	return st
}

func newTestUtils(t *testing.T, st store.IStore, opts *Options) (*Utils, *docstore.Database) {
	t.Helper()
	database, err := docstore.New(st, nil)
	require.NoError(t, err)
	return New(database, opts), database
}

// keyValueStore hides Used and Quota of the local store
type keyValueStore struct {
	store.IStore
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 Bytes",
		500:             "500 Bytes",
		1024:            "1 KB",
		1536:            "1.5 KB",
		1234567:         "1.18 MB",
		5 * 1024 * 1024: "5 MB",
		3 << 30:         "3 GB",
	}
	for n, want := range tests {
		require.Equal(t, want, FormatBytes(n), "FormatBytes(%d)", n)
	}
}

func TestGetStorageInfo(t *testing.T) {
	st := newTestStore(t, 0)
	u, _ := newTestUtils(t, st, &Options{Total: 1000})

	require.NoError(t, st.Set("a", []byte("12345")))
	info, err := u.GetStorageInfo()
	require.NoError(t, err)
	require.Equal(t, int64(1000), info.Total)
	require.Equal(t, st.Used(), info.Used)
	require.InDelta(t, float64(info.Used)/10, info.Percentage, 1e-9)
	require.Equal(t, FormatBytes(info.Used), info.HumanReadable.Used)
	require.Equal(t, "1000 Bytes", info.HumanReadable.Total)

	// stores without accounting are measured key by key
	plain, _ := newTestUtils(t, keyValueStore{st}, &Options{Total: 1000})
	plainInfo, err := plain.GetStorageInfo()
	require.NoError(t, err)
	require.Equal(t, info.Used, plainInfo.Used)
}

func TestTotalDefaults(t *testing.T) {
	u, _ := newTestUtils(t, newTestStore(t, 4096), nil)
	require.Equal(t, int64(4096), u.total)

	u, _ = newTestUtils(t, keyValueStore{newTestStore(t, 0)}, nil)
	require.Equal(t, DefaultTotal, u.total)
}

func TestValidateDatabase(t *testing.T) {
	st := newTestStore(t, 0)
	u, database := newTestUtils(t, st, nil)

	result := u.ValidateDatabase()
	require.True(t, result.IsValid)
	require.Contains(t, result.Warnings, "No collections found - database is empty")

	ana, err := database.InsertOne("usuarios", f("nombre", "Ana"))
	require.NoError(t, err)
	_, err = database.InsertOne("usuarios", f("nombre", "Luis"))
	require.NoError(t, err)

	result = u.ValidateDatabase()
	require.True(t, result.IsValid)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Warnings)

	// a document without id and timestamps written behind the engine's back
	require.NoError(t, st.Set("petla_db_collection_usuarios_"+ana.ID(), []byte(`{"nombre":"Ana"}`)))
	result = u.ValidateDatabase()
	require.False(t, result.IsValid)
	require.Equal(t, []string{"Document missing _id in collection usuarios"}, result.Errors)
	require.Contains(t, result.Warnings, "Document missing createdAt in collection usuarios")
	require.Contains(t, result.Warnings, "Document missing updatedAt in collection usuarios")
}

func TestValidateStorageWarnings(t *testing.T) {
	st := newTestStore(t, 0)
	u, _ := newTestUtils(t, st, nil)
	used := st.Used()

	u.total = used * 100 / 80 // 80 %
	require.Contains(t, u.ValidateDatabase().Warnings, "Storage usage above 75% - monitor space usage")

	u.total = used * 100 / 95 // 95 %
	warnings := u.ValidateDatabase().Warnings
	require.Contains(t, warnings, "Storage usage above 90% - consider cleaning or backing up data")
	require.NotContains(t, warnings, "Storage usage above 75% - monitor space usage")
}

func TestOptimizeStorage(t *testing.T) {
	st := newTestStore(t, 0)
	u, database := newTestUtils(t, st, nil)
	_, err := database.InsertOne("citas", f("estado", "aceptada"))
	require.NoError(t, err)

	result, err := u.OptimizeStorage()
	require.NoError(t, err)
	require.Equal(t, int64(0), result.Cleaned)
	require.Equal(t, "No temporary data found to clean", result.Message)

	for _, key := range []string{"temp_a", "cache_b", "preview_c", "draft_d", "old_e", "test_f"} {
		require.NoError(t, st.Set(key, []byte(strings.Repeat("x", 100-len(key)))))
	}
	require.NoError(t, st.Set("keep_me", []byte("x")))

	result, err = u.OptimizeStorage()
	require.NoError(t, err)
	require.Equal(t, int64(6*100), result.Cleaned)
	require.Equal(t, "Cleaned 600 Bytes of temporary data", result.Message)

	keys, err := st.Keys()
	require.NoError(t, err)
	for _, key := range keys {
		require.False(t, isTemporary(key), "temporary key %s survived", key)
	}
	require.Contains(t, keys, "keep_me")

	n, err := database.Count("citas", nil)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOptimizeStorageKeepsDatabaseKeys(t *testing.T) {
	st := newTestStore(t, 0)
	opts := docstore.DefaultOptions()
	opts.Name = "test_clinica"
	database, err := docstore.New(st, opts)
	require.NoError(t, err)
	u := New(database, nil)

	_, err = database.InsertOne("mascotas", f("nombre", "Max"))
	require.NoError(t, err)
	require.NoError(t, database.CreateIndex("mascotas", "nombre", docstore.IndexOptions{}))
	require.NoError(t, st.Set("test_borrador", []byte("x")))

	result, err := u.OptimizeStorage()
	require.NoError(t, err)
	require.Equal(t, int64(len("test_borrador")+1), result.Cleaned)

	n, err := database.Count("mascotas", f("nombre", "Max"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	names, err := database.ListCollections()
	require.NoError(t, err)
	require.Equal(t, []string{"mascotas"}, names)
}

func TestMigrateFromOldFormat(t *testing.T) {
	st := newTestStore(t, 0)
	u, database := newTestUtils(t, st, nil)

	legacy := `[
		{"id": "u1", "nombre": "Ana", "fechaRegistro": "2024-01-15T10:30:00.000Z"},
		{"id": "u2", "nombre": "Luis", "fechaRegistro": "2024-02-01"},
		{"id": "u3", "nombre": "Eva", "fechaRegistro": "pronto", "ultimoAcceso": 5}
	]`
	require.NoError(t, st.Set("usuarios", []byte(legacy)))
	require.NoError(t, st.Set("citas", []byte(`[]`)))

	result := u.MigrateFromOldFormat()
	require.True(t, result.Success, "errors: %v", result.Errors)
	require.Equal(t, []string{"usuarios (3 documents)"}, result.MigratedCollections)

	docs, err := database.Find("usuarios", nil, nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, doc := range docs {
		require.NotContains(t, []string{"u1", "u2", "u3"}, doc.ID())
		require.False(t, doc.Has("id"))
	}

	first, ok := docs[0].Get("fechaRegistro").AsDate()
	require.True(t, ok, "fechaRegistro should be a date")
	require.True(t, first.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)))
	_, ok = docs[1].Get("fechaRegistro").AsDate()
	require.True(t, ok)
	unparsed, ok := docs[2].Get("fechaRegistro").AsString()
	require.True(t, ok)
	require.Equal(t, "pronto", unparsed)

	found, err := st.Has("usuarios")
	require.NoError(t, err)
	require.False(t, found, "legacy key should be removed")

	found, err = st.Has("citas")
	require.NoError(t, err)
	require.True(t, found, "empty legacy arrays are left alone")
}

func TestMigrateKeepsKeyOnPartialFailure(t *testing.T) {
	st := newTestStore(t, 0)
	u, database := newTestUtils(t, st, nil)

	require.NoError(t, st.Set("mascotas", []byte(`[{"id": 1, "nombre": "Max"}, "basura"]`)))
	require.NoError(t, st.Set("notificaciones", []byte(`{not json`)))

	result := u.MigrateFromOldFormat()
	require.False(t, result.Success)
	require.Len(t, result.Errors, 2)
	require.Equal(t, []string{"mascotas (1 documents)"}, result.MigratedCollections)

	found, err := st.Has("mascotas")
	require.NoError(t, err)
	require.True(t, found, "legacy key must stay when not all documents migrated")

	n, err := database.Count("mascotas", nil)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestBackupFiles(t *testing.T) {
	st := newTestStore(t, 0)
	now := time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)
	u, database := newTestUtils(t, st, &Options{Now: func() time.Time { return now }})

	_, err := database.InsertOne("mascotas", f("nombre", "Max"))
	require.NoError(t, err)
	require.Equal(t, "petla_backup_2025-06-30.json", u.DefaultBackupName())

	dir := t.TempDir()
	path, err := u.DownloadBackup(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "petla_backup_2025-06-30.json"), path)

	explicit := filepath.Join(dir, "copia.json")
	path, err = u.DownloadBackup(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, path)

	data, err := u.UploadBackup(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"mascotas"`)

	target, targetDB := newTestUtils(t, newTestStore(t, 0), nil)
	require.NoError(t, target.RestoreFromFile(path, nil))
	n, err := targetDB.Count("mascotas", f("nombre", "Max"))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = u.UploadBackup(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestUploadBackupAcceptsComments(t *testing.T) {
	u, database := newTestUtils(t, newTestStore(t, 0), nil)

	path := filepath.Join(t.TempDir(), "manual.json")
	content := `{
		// edited by hand
		"metadata": {"version": "1.0.0", "collections": ["citas"]},
		"collections": {
			"citas": {
				"documents": [{"estado": "aceptada"}, {"estado": "atendida"},],
				"indexes": [],
			},
		},
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, u.RestoreFromFile(path, nil))

	n, err := database.Count("citas", nil)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestExportImport(t *testing.T) {
	u, database := newTestUtils(t, newTestStore(t, 0), nil)
	_, err := database.InsertOne("citas", f("estado", "aceptada"))
	require.NoError(t, err)

	data, err := u.ExportData()
	require.NoError(t, err)

	other, otherDB := newTestUtils(t, newTestStore(t, 0), nil)
	require.NoError(t, other.ImportData(data))
	n, err := otherDB.Count("citas", nil)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = other.ImportData([]byte("{"))
	require.ErrorIs(t, err, docstore.ErrMalformedSnapshot)
}

func TestSetupDemoData(t *testing.T) {
	u, database := newTestUtils(t, newTestStore(t, 0), nil)

	seeded, err := u.SetupDemoData()
	require.NoError(t, err)
	require.True(t, seeded)

	users, err := database.Find("usuarios", nil, &docstore.FindOptions{
		Sort: []docstore.SortField{{Field: "email", Order: 1}},
	})
	require.NoError(t, err)
	require.Len(t, users, 3)

	admin, found, err := database.FindOne("usuarios", f("email", "admin@petla.com"))
	require.NoError(t, err)
	require.True(t, found)
	rol, _ := admin.Get("rol").AsString()
	require.Equal(t, "admin", rol)

	hash, _ := admin.Get("password").AsString()
	require.NotEqual(t, "admin123", hash)
	valid, err := VerifyPassword(hash, "admin123")
	require.NoError(t, err)
	require.True(t, valid)
	valid, err = VerifyPassword(hash, "wrong")
	require.NoError(t, err)
	require.False(t, valid)

	names, err := database.ListCollections()
	require.NoError(t, err)
	require.ElementsMatch(t, append([]string{"usuarios"}, demoCollections...), names)

	specs, err := database.ListIndexes("suscriptoresNewsletter")
	require.NoError(t, err)
	require.Equal(t, []docstore.IndexSpec{{Field: "email", Options: docstore.IndexOptions{Unique: true}}}, specs)

	specs, err = database.ListIndexes("citas")
	require.NoError(t, err)
	require.Len(t, specs, 2)

	// seeding twice is a no-op
	seeded, err = u.SetupDemoData()
	require.NoError(t, err)
	require.False(t, seeded)
	n, err := database.Count("usuarios", nil)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestVerifyPasswordRejectsGarbage(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$bcrypt$x$y$z$w", "$argon2id$v=19$m=1$a$b"} {
		_, err := VerifyPassword(encoded, "x")
		require.Error(t, err, "VerifyPassword(%q)", encoded)
	}
}
