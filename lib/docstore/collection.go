package docstore

import (
	"encoding/json"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// --------------------------------------------------------------------------
// Collection Operations
// --------------------------------------------------------------------------

// CreateCollection registers an empty collection. Creating an existing collection is a no-op.
func (d *Database) CreateCollection(name string) error {
	if err := validateName("collection", name); err != nil {
		return err
	}
	return d.run("createCollection", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		return d.ensureCollection(m, name)
	})
}

// DropCollection deletes a collection with all its documents and index maps.
// Dropping a missing collection is a no-op.
func (d *Database) DropCollection(name string) error {
	if err := validateName("collection", name); err != nil {
		return err
	}
	return d.run("dropCollection", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		return d.dropCollection(m, name)
	})
}

// ListCollections returns the collection names in creation order
func (d *Database) ListCollections() ([]string, error) {
	var names []string
	err := d.run("listCollections", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		names = append([]string{}, m.Collections...)
		return nil
	})
	return names, err
}

func (d *Database) dropCollection(m *metadata, name string) error {
	ids, err := d.loadIDs(name)
	if err != nil {
		return err
	}

	// the id list goes first, documents without it are invisible
	if err := d.st.Delete(d.collectionKey(name)); err != nil {
		return storageError(err, "drop collection %s", name)
	}
	for _, id := range ids {
		if err := d.st.Delete(d.documentKey(name, id)); err != nil {
			return storageError(err, "drop document %s of collection %s", id, name)
		}
	}
	for _, spec := range m.indexes(name) {
		if err := d.st.Delete(d.indexKey(name, spec.Field)); err != nil {
			return storageError(err, "drop index %s of collection %s", spec.Field, name)
		}
	}

	if m.hasCollection(name) || len(m.indexes(name)) > 0 {
		m.removeCollection(name)
		if err := d.saveMetadata(m); err != nil {
			return err
		}
	}
	log.Debugf("dropped collection %s (%d documents) of database %s", name, len(ids), d.name)
	return nil
}

// --------------------------------------------------------------------------
// Id Lists and Document Blobs
// --------------------------------------------------------------------------

// loadIDs returns the id list of a collection (empty for unknown collections)
func (d *Database) loadIDs(collection string) ([]string, error) {
	data, found, err := d.st.Get(d.collectionKey(collection))
	if err != nil {
		return nil, storageError(err, "read id list of %s", collection)
	}
	if !found {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, storageError(err, "decode id list of %s", collection)
	}
	return ids, nil
}

func (d *Database) saveIDs(collection string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return storageError(err, "encode id list of %s", collection)
	}
	if err := d.st.Set(d.collectionKey(collection), data); err != nil {
		return storageError(err, "write id list of %s", collection)
	}
	return nil
}

// loadDocument reads one document. A blob that cannot be decoded is reported
// as not found after logging a warning.
func (d *Database) loadDocument(collection, id string) (document.Document, bool, error) {
	data, found, err := d.st.Get(d.documentKey(collection, id))
	if err != nil {
		return document.Document{}, false, storageError(err, "read document %s of %s", id, collection)
	}
	if !found {
		log.Debugf("document %s is listed in %s but not stored", id, collection)
		return document.Document{}, false, nil
	}
	doc, err := d.codec.Decode(data)
	if err != nil {
		skippedDocuments.Inc()
		log.Warningf("skipping malformed document %s in collection %s: %v", id, collection, err)
		return document.Document{}, false, nil
	}
	return doc, true, nil
}

// loadRaw returns the undecoded blob of a document
func (d *Database) loadRaw(collection, id string) ([]byte, bool, error) {
	data, found, err := d.st.Get(d.documentKey(collection, id))
	if err != nil {
		return nil, false, storageError(err, "read document %s of %s", id, collection)
	}
	return data, found, nil
}

func (d *Database) saveDocument(collection string, doc document.Document) error {
	data, err := d.codec.Encode(doc)
	if err != nil {
		return newError(CodeInvalidArgument, "encode document: %v", err)
	}
	if err := d.st.Set(d.documentKey(collection, doc.ID()), data); err != nil {
		return storageError(err, "write document %s of %s", doc.ID(), collection)
	}
	return nil
}

// scan returns the documents of a collection that match q, in id list order.
// If q has an equality condition on an indexed field, only the ids of the
// matching index entry are read.
func (d *Database) scan(m *metadata, collection string, q *query) ([]document.Document, error) {
	ids, err := d.loadIDs(collection)
	if err != nil {
		return nil, err
	}

	candidates, err := d.indexCandidates(m, collection, q)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0)
	for _, id := range ids {
		if candidates != nil {
			if _, ok := candidates[id]; !ok {
				continue
			}
		}
		doc, found, err := d.loadDocument(collection, id)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		if q.matches(doc) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
