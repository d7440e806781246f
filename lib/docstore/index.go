package docstore

import (
	"encoding/json"
	"slices"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// indexMap is the persisted form of an index: canonical key -> ids
type indexMap map[string][]string

// --------------------------------------------------------------------------
// Index Operations
// --------------------------------------------------------------------------

// CreateIndex declares an index on field (dot notation allowed) and builds its map
// from the existing documents. If opts.Unique is set and two documents share a
// value, ErrDuplicateKey is returned and nothing is persisted. Declaring an existing
// index again replaces its options and rebuilds it.
func (d *Database) CreateIndex(collection, field string, opts IndexOptions) error {
	if err := validateName("collection", collection); err != nil {
		return err
	}
	if err := validateName("index field", field); err != nil {
		return err
	}
	return d.run("createIndex", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		return d.createIndex(m, collection, IndexSpec{Field: field, Options: opts})
	})
}

// DropIndex removes an index declaration and its map. Dropping a missing index is a no-op.
func (d *Database) DropIndex(collection, field string) error {
	return d.run("dropIndex", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		if !m.removeIndex(collection, field) {
			return nil
		}
		if err := d.saveMetadata(m); err != nil {
			return err
		}
		if err := d.st.Delete(d.indexKey(collection, field)); err != nil {
			return storageError(err, "delete index %s of %s", field, collection)
		}
		return nil
	})
}

// ListIndexes returns the index declarations of a collection
func (d *Database) ListIndexes(collection string) ([]IndexSpec, error) {
	var specs []IndexSpec
	err := d.run("listIndexes", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		specs = append([]IndexSpec{}, m.indexes(collection)...)
		return nil
	})
	return specs, err
}

func (d *Database) createIndex(m *metadata, collection string, spec IndexSpec) error {
	if other, field, ok := d.indexKeyOwner(m, collection, spec.Field); ok {
		return newError(CodeInvalidArgument, "index %s.%s would share its key with index %s.%s",
			collection, spec.Field, other, field)
	}
	if err := d.ensureCollection(m, collection); err != nil {
		return err
	}

	docs, err := d.scan(m, collection, &query{})
	if err != nil {
		return err
	}

	idx := indexMap{}
	for _, doc := range docs {
		v := doc.Lookup(spec.Field)
		if v.IsAbsent() && spec.Options.Sparse {
			continue
		}
		key := document.CanonicalKey(v)
		if spec.Options.Unique && !v.IsAbsent() && len(idx[key]) > 0 {
			return newError(CodeDuplicateKey, "cannot create unique index on %s.%s: value %s is used by %s and %s",
				collection, spec.Field, v, idx[key][0], doc.ID())
		}
		idx[key] = append(idx[key], doc.ID())
	}

	if err := d.saveIndex(collection, spec.Field, idx); err != nil {
		return err
	}

	previous, declared := m.findIndex(collection, spec.Field)
	m.setIndex(collection, spec)
	if err := d.saveMetadata(m); err != nil {
		if declared {
			m.setIndex(collection, previous)
		} else {
			m.removeIndex(collection, spec.Field)
			_ = d.st.Delete(d.indexKey(collection, spec.Field))
		}
		return err
	}
	log.Debugf("created index %s on %s (unique=%t, sparse=%t, %d keys)",
		spec.Field, collection, spec.Options.Unique, spec.Options.Sparse, len(idx))
	return nil
}

// indexKeyOwner finds a declared index of another (collection, field) pair whose map
// key equals the key of collection.field, e.g. a_b.c and a.b_c
func (d *Database) indexKeyOwner(m *metadata, collection, field string) (string, string, bool) {
	key := d.indexKey(collection, field)
	for other, specs := range m.Indexes {
		for _, spec := range specs {
			if other == collection && spec.Field == field {
				continue
			}
			if d.indexKey(other, spec.Field) == key {
				return other, spec.Field, true
			}
		}
	}
	return "", "", false
}

// --------------------------------------------------------------------------
// Index Maps
// --------------------------------------------------------------------------

func (d *Database) loadIndex(collection, field string) (indexMap, error) {
	data, found, err := d.st.Get(d.indexKey(collection, field))
	if err != nil {
		return nil, storageError(err, "read index %s of %s", field, collection)
	}
	idx := indexMap{}
	if !found {
		return idx, nil
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, storageError(err, "decode index %s of %s", field, collection)
	}
	return idx, nil
}

func (d *Database) saveIndex(collection, field string, idx indexMap) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return storageError(err, "encode index %s of %s", field, collection)
	}
	if err := d.st.Set(d.indexKey(collection, field), data); err != nil {
		return storageError(err, "write index %s of %s", field, collection)
	}
	return nil
}

func (idx indexMap) clone() indexMap {
	out := make(indexMap, len(idx))
	for k, ids := range idx {
		out[k] = slices.Clone(ids)
	}
	return out
}

func (idx indexMap) add(key, id string) {
	if !slices.Contains(idx[key], id) {
		idx[key] = append(idx[key], id)
	}
}

// remove deletes id from every entry, so stale entries are cleaned as well
func (idx indexMap) remove(id string) {
	for key, ids := range idx {
		if i := slices.Index(ids, id); i >= 0 {
			ids = slices.Delete(ids, i, i+1)
			if len(ids) == 0 {
				delete(idx, key)
			} else {
				idx[key] = ids
			}
		}
	}
}

// entryKey returns the key under which a document is indexed, false if a
// sparse index skips it
func entryKey(spec IndexSpec, doc document.Document) (string, bool) {
	v := doc.Lookup(spec.Field)
	if v.IsAbsent() && spec.Options.Sparse {
		return "", false
	}
	return document.CanonicalKey(v), true
}

// checkUnique fails if another document than self holds the indexed value of doc
func checkUnique(collection string, spec IndexSpec, idx indexMap, doc document.Document) error {
	if !spec.Options.Unique {
		return nil
	}
	v := doc.Lookup(spec.Field)
	if v.IsAbsent() {
		return nil
	}
	for _, id := range idx[document.CanonicalKey(v)] {
		if id != doc.ID() {
			return newError(CodeDuplicateKey, "duplicate value %s for unique index %s.%s (held by %s)",
				v, collection, spec.Field, id)
		}
	}
	return nil
}

// loadIndexes reads the maps of all declared indexes of a collection
func (d *Database) loadIndexes(m *metadata, collection string) ([]indexMap, error) {
	specs := m.indexes(collection)
	maps := make([]indexMap, len(specs))
	for i, spec := range specs {
		idx, err := d.loadIndex(collection, spec.Field)
		if err != nil {
			return nil, err
		}
		maps[i] = idx
	}
	return maps, nil
}

// indexCandidates returns the ids an indexed equality condition of q can match,
// or nil if no condition is backed by an index
func (d *Database) indexCandidates(m *metadata, collection string, q *query) (map[string]struct{}, error) {
	eq := q.equalities()
	if len(eq) == 0 {
		return nil, nil
	}
	for _, spec := range m.indexes(collection) {
		v, ok := eq[spec.Field]
		if !ok {
			continue
		}
		idx, err := d.loadIndex(collection, spec.Field)
		if err != nil {
			return nil, err
		}
		ids := idx[document.CanonicalKey(v)]
		candidates := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			candidates[id] = struct{}{}
		}
		return candidates, nil
	}
	return nil, nil
}
