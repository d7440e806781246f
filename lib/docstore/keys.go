package docstore

// Key layout:
//
//	{db}_metadata                   database metadata (JSON)
//	{db}_collection_{name}          id list of a collection (JSON array)
//	{db}_collection_{name}_{id}     document blob (codec)
//	{db}_index_{name}_{field}       index map canonical key -> ids (JSON)
//	{db}_lock                       advisory lock
//
// Names are joined with "_" and may contain it, so the layout is not injective:
// collection a_b with index c and collection a with index b_c map to the same index
// key. CreateIndex rejects the second declaration of such a pair. A collection named
// {name}_{id} would likewise overlap the document keys of collection {name}.

func (d *Database) metadataKey() string {
	return d.name + "_metadata"
}

func (d *Database) lockKey() string {
	return d.name + "_lock"
}

func (d *Database) collectionKey(collection string) string {
	return d.name + "_collection_" + collection
}

func (d *Database) documentKey(collection, id string) string {
	return d.collectionKey(collection) + "_" + id
}

func (d *Database) indexKey(collection, field string) string {
	return d.name + "_index_" + collection + "_" + field
}
