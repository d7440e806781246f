// Package lstore implements the local, single-node store.IStore on top of any
// db.KVDB engine. It adds feature detection, uniform error codes and a storage quota.
//
// Quota Accounting:
//
//	The store charges len(key)+len(value) for every key. The usage is computed once
//	from the existing content when the store is created and then tracked on every
//	write. A write that would push the usage above Options.Quota fails with
//	store.RetCQuotaExceeded and leaves the store unchanged; writes that shrink the
//	usage always pass. Writes are serialized by a mutex so the counter and the
//	database agree. Rejections are counted in petladb_store_quota_rejections_total.
//
//	When several processes share one backend (e.g. Redis) each store only sees its
//	own writes, so the quota is per process in that setup.
//
// Feature Detection:
//
//	Before executing an operation the store checks SupportsFeature of the engine.
//	Unsupported operations return store.RetCUnsupportedOperation.
//
// Usage Example:
//
//	factory := func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }
//	st, err := lstore.NewLocalStore(factory, nil) // 5 MiB quota
//
//	err = st.Set("petla_db_metadata", data)
//	value, exists, err := st.Get("petla_db_metadata")
package lstore
