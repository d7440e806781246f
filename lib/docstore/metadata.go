package docstore

import (
	"encoding/json"
	"slices"
	"time"
)

// metadata is the persisted state of the database under {db}_metadata
type metadata struct {
	Version     string                 `json:"version"`
	CreatedAt   time.Time              `json:"createdAt"`
	Collections []string               `json:"collections"`
	LastBackup  *time.Time             `json:"lastBackup"`
	Indexes     map[string][]IndexSpec `json:"indexes,omitempty"`
}

func (m *metadata) hasCollection(name string) bool {
	return slices.Contains(m.Collections, name)
}

func (m *metadata) indexes(collection string) []IndexSpec {
	return m.Indexes[collection]
}

func (m *metadata) findIndex(collection, field string) (IndexSpec, bool) {
	for _, spec := range m.Indexes[collection] {
		if spec.Field == field {
			return spec, true
		}
	}
	return IndexSpec{}, false
}

// setIndex declares an index, replacing an existing declaration of the same field
func (m *metadata) setIndex(collection string, spec IndexSpec) {
	if m.Indexes == nil {
		m.Indexes = map[string][]IndexSpec{}
	}
	specs := m.Indexes[collection]
	for i := range specs {
		if specs[i].Field == spec.Field {
			specs[i] = spec
			return
		}
	}
	m.Indexes[collection] = append(specs, spec)
}

func (m *metadata) removeIndex(collection, field string) bool {
	specs := m.Indexes[collection]
	for i := range specs {
		if specs[i].Field == field {
			m.Indexes[collection] = slices.Delete(specs, i, i+1)
			if len(m.Indexes[collection]) == 0 {
				delete(m.Indexes, collection)
			}
			return true
		}
	}
	return false
}

func (m *metadata) removeCollection(name string) {
	if i := slices.Index(m.Collections, name); i >= 0 {
		m.Collections = slices.Delete(m.Collections, i, i+1)
	}
	delete(m.Indexes, name)
}

// loadMetadata reads the metadata, creating it if the database is new
func (d *Database) loadMetadata() (*metadata, error) {
	data, found, err := d.st.Get(d.metadataKey())
	if err != nil {
		return nil, storageError(err, "read metadata")
	}
	if !found {
		m := &metadata{
			Version:     Version,
			CreatedAt:   d.timestamp(),
			Collections: []string{},
		}
		if err := d.saveMetadata(m); err != nil {
			return nil, err
		}
		return m, nil
	}

	m := &metadata{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, storageError(err, "decode metadata of database %s", d.name)
	}
	if m.Collections == nil {
		m.Collections = []string{}
	}
	return m, nil
}

func (d *Database) saveMetadata(m *metadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return storageError(err, "encode metadata")
	}
	if err := d.st.Set(d.metadataKey(), data); err != nil {
		return storageError(err, "write metadata")
	}
	return nil
}

// ensureCollection registers a collection in the metadata and creates its empty id list
func (d *Database) ensureCollection(m *metadata, name string) error {
	if m.hasCollection(name) {
		return nil
	}
	if _, err := d.st.SetIfUnset(d.collectionKey(name), []byte("[]")); err != nil {
		return storageError(err, "create collection %s", name)
	}
	m.Collections = append(m.Collections, name)
	if err := d.saveMetadata(m); err != nil {
		m.Collections = m.Collections[:len(m.Collections)-1]
		return err
	}
	log.Debugf("created collection %s in database %s", name, d.name)
	return nil
}
