package docstore

import (
	"slices"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// --------------------------------------------------------------------------
// Insert
// --------------------------------------------------------------------------

// InsertOne stores a new document and returns it. _id, createdAt and updatedAt are
// assigned by the database, values the caller passes for them are ignored.
// The collection is created if it does not exist.
func (d *Database) InsertOne(collection string, fields document.Fields) (document.Document, error) {
	if err := validateName("collection", collection); err != nil {
		return document.Document{}, err
	}
	var doc document.Document
	err := d.run("insertOne", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		doc, err = d.insert(m, collection, fields)
		return err
	})
	return doc, err
}

// InsertMany inserts the documents one after another. It stops at the first error and
// returns the documents inserted so far together with the error.
func (d *Database) InsertMany(collection string, list []document.Fields) ([]document.Document, error) {
	if err := validateName("collection", collection); err != nil {
		return nil, err
	}
	docs := make([]document.Document, 0, len(list))
	err := d.run("insertMany", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		for _, fields := range list {
			doc, err := d.insert(m, collection, fields)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func (d *Database) insert(m *metadata, collection string, fields document.Fields) (document.Document, error) {
	id, err := newID()
	if err != nil {
		return document.Document{}, storageError(err, "insert into %s", collection)
	}
	now := d.timestamp()
	return d.insertDocument(m, collection, buildDocument(id, now, now, fields))
}

// buildDocument puts the reserved fields first, followed by the user fields
func buildDocument(id string, createdAt, updatedAt time.Time, fields document.Fields) document.Document {
	doc := document.Document{Fields: make(document.Fields, 0, len(fields)+3)}
	doc.Set(document.FieldID, document.String(id))
	doc.Set(document.FieldCreatedAt, document.Date(createdAt))
	doc.Set(document.FieldUpdatedAt, document.Date(updatedAt))
	for _, f := range (document.Document{Fields: fields}).UserFields() {
		doc.Set(f.Name, f.Value)
	}
	return doc
}

// insertDocument writes a complete document: unique checks, blob, id list, index maps
func (d *Database) insertDocument(m *metadata, collection string, doc document.Document) (document.Document, error) {
	doc, err := d.normalize(doc)
	if err != nil {
		return document.Document{}, err
	}
	if err := d.ensureCollection(m, collection); err != nil {
		return document.Document{}, err
	}

	specs := m.indexes(collection)
	maps, err := d.loadIndexes(m, collection)
	if err != nil {
		return document.Document{}, err
	}
	for i, spec := range specs {
		if err := checkUnique(collection, spec, maps[i], doc); err != nil {
			return document.Document{}, err
		}
	}

	ids, err := d.loadIDs(collection)
	if err != nil {
		return document.Document{}, err
	}
	if slices.Contains(ids, doc.ID()) {
		return document.Document{}, newError(CodeDuplicateKey, "document %s already exists in %s", doc.ID(), collection)
	}

	var undo undoLog
	if err := d.saveDocument(collection, doc); err != nil {
		return document.Document{}, err
	}
	undo.push(func() error { return d.st.Delete(d.documentKey(collection, doc.ID())) })

	if err := d.saveIDs(collection, append(slices.Clone(ids), doc.ID())); err != nil {
		undo.rollback()
		return document.Document{}, err
	}
	undo.push(func() error { return d.saveIDs(collection, ids) })

	for i, spec := range specs {
		key, ok := entryKey(spec, doc)
		if !ok {
			continue
		}
		previous := maps[i].clone()
		maps[i].add(key, doc.ID())
		if err := d.saveIndex(collection, spec.Field, maps[i]); err != nil {
			undo.rollback()
			return document.Document{}, err
		}
		field := spec.Field
		undo.push(func() error { return d.saveIndex(collection, field, previous) })
	}
	return doc, nil
}

// --------------------------------------------------------------------------
// Find
// --------------------------------------------------------------------------

// Find returns the documents matching filter (nil matches all). Documents are returned
// in insertion order unless opts.Sort is set.
func (d *Database) Find(collection string, filter Filter, opts *FindOptions) ([]document.Document, error) {
	var docs []document.Document
	err := d.run("find", func() error {
		var err error
		docs, err = d.find(collection, filter, opts)
		return err
	})
	return docs, err
}

// FindOne returns the first document matching filter. The boolean is false if none matches.
func (d *Database) FindOne(collection string, filter Filter) (document.Document, bool, error) {
	var (
		doc   document.Document
		found bool
	)
	err := d.run("findOne", func() error {
		docs, err := d.find(collection, filter, &FindOptions{Limit: 1})
		if err != nil || len(docs) == 0 {
			return err
		}
		doc, found = docs[0], true
		return nil
	})
	return doc, found, err
}

// FindByID returns the document with the given id
func (d *Database) FindByID(collection, id string) (document.Document, bool, error) {
	var (
		doc   document.Document
		found bool
	)
	err := d.run("findById", func() error {
		ids, err := d.loadIDs(collection)
		if err != nil || !slices.Contains(ids, id) {
			return err
		}
		doc, found, err = d.loadDocument(collection, id)
		return err
	})
	return doc, found, err
}

func (d *Database) find(collection string, filter Filter, opts *FindOptions) ([]document.Document, error) {
	if err := validateFindOptions(opts); err != nil {
		return nil, err
	}
	q, err := compileQuery(filter, d.strict)
	if err != nil {
		return nil, err
	}
	m, err := d.loadMetadata()
	if err != nil {
		return nil, err
	}
	docs, err := d.scan(m, collection, q)
	if err != nil {
		return nil, err
	}
	if opts != nil {
		sortDocuments(docs, opts.Sort)
		docs = paginate(docs, opts.Skip, opts.Limit)
	}
	return docs, nil
}

// --------------------------------------------------------------------------
// Update
// --------------------------------------------------------------------------

// UpdateOne merges patch into the first document matching filter and returns the
// updated document. _id and createdAt in patch are ignored, updatedAt is refreshed.
func (d *Database) UpdateOne(collection string, filter Filter, patch document.Fields) (document.Document, bool, error) {
	var (
		doc   document.Document
		found bool
	)
	err := d.run("updateOne", func() error {
		docs, m, err := d.matching(collection, filter)
		if err != nil || len(docs) == 0 {
			return err
		}
		doc, err = d.update(m, collection, docs[0], patch)
		found = err == nil
		return err
	})
	return doc, found, err
}

// UpdateMany merges patch into every matching document. It stops at the first error
// and returns the documents updated so far together with the error.
func (d *Database) UpdateMany(collection string, filter Filter, patch document.Fields) ([]document.Document, error) {
	updated := make([]document.Document, 0)
	err := d.run("updateMany", func() error {
		docs, m, err := d.matching(collection, filter)
		if err != nil {
			return err
		}
		for _, old := range docs {
			doc, err := d.update(m, collection, old, patch)
			if err != nil {
				return err
			}
			updated = append(updated, doc)
		}
		return nil
	})
	return updated, err
}

// matching compiles the filter and scans the collection
func (d *Database) matching(collection string, filter Filter) ([]document.Document, *metadata, error) {
	q, err := compileQuery(filter, d.strict)
	if err != nil {
		return nil, nil, err
	}
	m, err := d.loadMetadata()
	if err != nil {
		return nil, nil, err
	}
	docs, err := d.scan(m, collection, q)
	if err != nil {
		return nil, nil, err
	}
	return docs, m, nil
}

func (d *Database) update(m *metadata, collection string, old document.Document, patch document.Fields) (document.Document, error) {
	changes := make(document.Fields, 0, len(patch))
	for _, f := range patch {
		if f.Name == document.FieldID || f.Name == document.FieldCreatedAt {
			continue
		}
		changes.Set(f.Name, f.Value)
	}
	merged := document.Document{Fields: old.Merge(changes)}
	merged.Set(document.FieldUpdatedAt, document.Date(d.timestamp()))
	doc, err := d.normalize(merged)
	if err != nil {
		return document.Document{}, err
	}

	specs := m.indexes(collection)
	maps, err := d.loadIndexes(m, collection)
	if err != nil {
		return document.Document{}, err
	}
	for i, spec := range specs {
		if err := checkUnique(collection, spec, maps[i], doc); err != nil {
			return document.Document{}, err
		}
	}

	var undo undoLog
	if err := d.saveDocument(collection, doc); err != nil {
		return document.Document{}, err
	}
	undo.push(func() error { return d.saveDocument(collection, old) })

	for i, spec := range specs {
		oldKey, oldOK := entryKey(spec, old)
		newKey, newOK := entryKey(spec, doc)
		if oldKey == newKey && oldOK == newOK {
			continue
		}
		previous := maps[i].clone()
		maps[i].remove(doc.ID())
		if newOK {
			maps[i].add(newKey, doc.ID())
		}
		if err := d.saveIndex(collection, spec.Field, maps[i]); err != nil {
			undo.rollback()
			return document.Document{}, err
		}
		field := spec.Field
		undo.push(func() error { return d.saveIndex(collection, field, previous) })
	}
	return doc, nil
}

// --------------------------------------------------------------------------
// Delete
// --------------------------------------------------------------------------

// DeleteOne deletes the first document matching filter
func (d *Database) DeleteOne(collection string, filter Filter) (bool, error) {
	var deleted bool
	err := d.run("deleteOne", func() error {
		docs, m, err := d.matching(collection, filter)
		if err != nil || len(docs) == 0 {
			return err
		}
		deleted, err = d.delete(m, collection, docs[0].ID())
		return err
	})
	return deleted, err
}

// DeleteMany deletes every matching document and returns how many were deleted.
// It stops at the first error.
func (d *Database) DeleteMany(collection string, filter Filter) (int, error) {
	var n int
	err := d.run("deleteMany", func() error {
		docs, m, err := d.matching(collection, filter)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			deleted, err := d.delete(m, collection, doc.ID())
			if err != nil {
				return err
			}
			if deleted {
				n++
			}
		}
		return nil
	})
	return n, err
}

// DeleteByID deletes the document with the given id
func (d *Database) DeleteByID(collection, id string) (bool, error) {
	var deleted bool
	err := d.run("deleteById", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		deleted, err = d.delete(m, collection, id)
		return err
	})
	return deleted, err
}

// delete removes the id from the id list, then the blob, then the index entries
func (d *Database) delete(m *metadata, collection, id string) (bool, error) {
	ids, err := d.loadIDs(collection)
	if err != nil {
		return false, err
	}
	i := slices.Index(ids, id)
	if i < 0 {
		return false, nil
	}

	var undo undoLog
	if err := d.saveIDs(collection, slices.Delete(slices.Clone(ids), i, i+1)); err != nil {
		return false, err
	}
	undo.push(func() error { return d.saveIDs(collection, ids) })

	if err := d.st.Delete(d.documentKey(collection, id)); err != nil {
		undo.rollback()
		return false, storageError(err, "delete document %s of %s", id, collection)
	}

	// the document is gone, a failing index write only leaves a stale entry
	for _, spec := range m.indexes(collection) {
		idx, err := d.loadIndex(collection, spec.Field)
		if err != nil {
			return true, err
		}
		idx.remove(id)
		if err := d.saveIndex(collection, spec.Field, idx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Aggregation
// --------------------------------------------------------------------------

// Count returns the number of documents matching filter
func (d *Database) Count(collection string, filter Filter) (int, error) {
	var n int
	err := d.run("count", func() error {
		docs, _, err := d.matching(collection, filter)
		n = len(docs)
		return err
	})
	return n, err
}

// Distinct returns the distinct values of field among the documents matching filter,
// in the order they are first seen. Documents without the field are skipped.
func (d *Database) Distinct(collection, field string, filter Filter) ([]document.Value, error) {
	if field == "" {
		return nil, newError(CodeInvalidArgument, "distinct field must not be empty")
	}
	values := make([]document.Value, 0)
	err := d.run("distinct", func() error {
		docs, _, err := d.matching(collection, filter)
		if err != nil {
			return err
		}
		seen := map[string]struct{}{}
		for _, doc := range docs {
			v := doc.Lookup(field)
			if v.IsAbsent() {
				continue
			}
			key := document.CanonicalKey(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			values = append(values, v)
		}
		return nil
	})
	return values, err
}
