// Package docstore implements an embedded document database with a MongoDB like
// collection API on top of a store.IStore.
//
// Data Layout:
//
//	Every piece of state is a key of the store, namespaced by the database name:
//
//	  {db}_metadata                 version, createdAt, collections, lastBackup, indexes
//	  {db}_collection_{name}        ordered id list of the collection
//	  {db}_collection_{name}_{id}   one document, encoded by the configured codec
//	  {db}_index_{name}_{field}     index map: canonical value key -> ids
//	  {db}_lock                     advisory lock (only with Options.Locker)
//
//	Names may contain "_", so two (collection, field) pairs can map to one index key
//	(a_b + c and a + b_c). CreateIndex refuses the second of such a pair.
//
// Writes:
//
//	A document write touches several keys. They are written in a fixed order
//	(document, id list, index maps) after all unique checks passed; if a step fails
//	the steps already applied are undone in reverse order. The id list is the source
//	of truth for membership, so a document is visible only once it is listed.
//	Before the checks the document is passed through the codec, so index keys are
//	computed from the stored values (BSON keeps dates at millisecond precision,
//	JSON writes NaN as null).
//
// Queries:
//
//	A Filter maps field paths to literals (equality) or operator documents using
//	$gt, $gte, $lt, $lte, $ne, $in, $nin, $exists and $regex. Ordering operators
//	only match values of the same kind. An equality condition on an indexed field
//	is answered through the index map instead of a full scan.
//
// Concurrency:
//
//	All operations of a Database are serialized by a mutex. Processes sharing one
//	backend (e.g. Redis) can additionally set Options.Locker to hold an advisory
//	lock for the duration of every operation.
//
// Usage Example:
//
//	st, _ := lstore.NewLocalStore(factory, nil)
//	database, err := docstore.New(st, nil)
//
//	pet, err := database.InsertOne("mascotas", document.MustFields("nombre", "Max", "especie", "perro"))
//	dogs, err := database.Find("mascotas", document.MustFields("especie", "perro"), &docstore.FindOptions{
//		Sort: []docstore.SortField{{Field: "nombre", Order: 1}},
//	})
package docstore
