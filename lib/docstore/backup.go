package docstore

import (
	"encoding/json"
	"slices"
	"sort"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// snapshotMetadata is the metadata section of a backup (index declarations are
// stored per collection)
type snapshotMetadata struct {
	Version     string     `json:"version"`
	CreatedAt   time.Time  `json:"createdAt"`
	Collections []string   `json:"collections"`
	LastBackup  *time.Time `json:"lastBackup"`
}

type snapshotCollection struct {
	Documents []document.Document `json:"documents"`
	Indexes   []IndexSpec         `json:"indexes"`
}

type snapshot struct {
	Metadata    snapshotMetadata              `json:"metadata"`
	Collections map[string]snapshotCollection `json:"collections"`
	Timestamp   time.Time                     `json:"timestamp"`
}

// rawSnapshot defers decoding of the collections until the destructive phase of Restore
type rawSnapshot struct {
	Metadata    json.RawMessage            `json:"metadata"`
	Collections map[string]json.RawMessage `json:"collections"`
	Timestamp   json.RawMessage            `json:"timestamp"`
}

type rawCollection struct {
	Documents []json.RawMessage `json:"documents"`
	Indexes   []IndexSpec       `json:"indexes"`
}

// --------------------------------------------------------------------------
// Backup
// --------------------------------------------------------------------------

// Backup serializes the whole database (metadata, documents and index declarations)
// to indented JSON. It stamps lastBackup before taking the snapshot.
func (d *Database) Backup() ([]byte, error) {
	var data []byte
	err := d.run("backup", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}

		now := d.timestamp()
		m.LastBackup = &now
		if err := d.saveMetadata(m); err != nil {
			return err
		}

		snap := snapshot{
			Metadata: snapshotMetadata{
				Version:     m.Version,
				CreatedAt:   m.CreatedAt,
				Collections: m.Collections,
				LastBackup:  m.LastBackup,
			},
			Collections: make(map[string]snapshotCollection, len(m.Collections)),
			Timestamp:   now,
		}
		total := 0
		for _, name := range m.Collections {
			docs, err := d.scan(m, name, &query{})
			if err != nil {
				return err
			}
			specs := m.indexes(name)
			if specs == nil {
				specs = []IndexSpec{}
			}
			snap.Collections[name] = snapshotCollection{Documents: docs, Indexes: specs}
			total += len(docs)
		}

		data, err = json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return newError(CodeUnknown, "encode backup: %v", err)
		}
		log.Infof("backup of database %s: %d collections, %d documents, %d bytes",
			d.name, len(m.Collections), total, len(data))
		return nil
	})
	return data, err
}

// --------------------------------------------------------------------------
// Restore
// --------------------------------------------------------------------------

// Restore replaces the whole database with the content of a backup.
//
// Data that is not valid JSON is rejected before anything is changed. After that every
// existing collection is dropped and the collections of the backup are recreated with
// their indexes and documents. A backup without a collections section, or with a
// malformed collection entry, aborts the restore with ErrMalformedSnapshot after the
// drop and leaves the database empty or partially restored.
func (d *Database) Restore(data []byte, opts *RestoreOptions) error {
	if opts == nil {
		opts = &RestoreOptions{}
	}
	return d.run("restore", func() error {
		var raw rawSnapshot
		if err := json.Unmarshal(data, &raw); err != nil {
			return &Error{Code: CodeMalformedSnapshot, Msg: "parse backup", Err: err}
		}
		var meta snapshotMetadata
		if len(raw.Metadata) > 0 && string(raw.Metadata) != "null" {
			if err := json.Unmarshal(raw.Metadata, &meta); err != nil {
				return &Error{Code: CodeMalformedSnapshot, Msg: "parse backup metadata", Err: err}
			}
		}

		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		for _, name := range slices.Clone(m.Collections) {
			if err := d.dropCollection(m, name); err != nil {
				return err
			}
		}
		for name := range m.Indexes {
			if err := d.dropCollection(m, name); err != nil {
				return err
			}
		}

		m.Version = meta.Version
		if m.Version == "" {
			m.Version = Version
		}
		m.CreatedAt = meta.CreatedAt
		if m.CreatedAt.IsZero() {
			m.CreatedAt = d.timestamp()
		}
		m.LastBackup = meta.LastBackup
		m.Collections = []string{}
		m.Indexes = nil
		if err := d.saveMetadata(m); err != nil {
			return err
		}
		if raw.Collections == nil {
			return newError(CodeMalformedSnapshot, "backup has no collections section")
		}

		total := 0
		names := restoreOrder(meta.Collections, raw.Collections)
		for _, name := range names {
			n, err := d.restoreCollection(m, name, raw.Collections[name], opts.PreserveIDs)
			if err != nil {
				return err
			}
			total += n
		}
		log.Infof("restored database %s: %d collections, %d documents", d.name, len(names), total)
		return nil
	})
}

func (d *Database) restoreCollection(m *metadata, name string, data json.RawMessage, preserveIDs bool) (int, error) {
	if err := validateName("collection", name); err != nil {
		return 0, &Error{Code: CodeMalformedSnapshot, Msg: "restore collection", Err: err}
	}
	var coll rawCollection
	if err := json.Unmarshal(data, &coll); err != nil {
		return 0, &Error{Code: CodeMalformedSnapshot, Msg: "parse collection " + name, Err: err}
	}

	if err := d.ensureCollection(m, name); err != nil {
		return 0, err
	}
	for _, spec := range coll.Indexes {
		if spec.Field == "" {
			return 0, newError(CodeMalformedSnapshot, "index without field in collection %s", name)
		}
		if err := d.createIndex(m, name, spec); err != nil {
			return 0, err
		}
	}

	for i, rawDoc := range coll.Documents {
		var doc document.Document
		if err := json.Unmarshal(rawDoc, &doc); err != nil {
			return i, &Error{Code: CodeMalformedSnapshot, Msg: "parse document of collection " + name, Err: err}
		}
		if err := d.restoreDocument(m, name, doc, preserveIDs); err != nil {
			return i, err
		}
	}
	return len(coll.Documents), nil
}

func (d *Database) restoreDocument(m *metadata, collection string, doc document.Document, preserveIDs bool) error {
	if !preserveIDs || doc.ID() == "" {
		_, err := d.insert(m, collection, doc.Fields)
		return err
	}

	now := d.timestamp()
	createdAt, updatedAt := doc.CreatedAt(), doc.UpdatedAt()
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := d.insertDocument(m, collection, buildDocument(doc.ID(), createdAt, updatedAt, doc.Fields))
	return err
}

// restoreOrder lists the collections in metadata order, followed by collections
// missing from the metadata in name order
func restoreOrder(declared []string, collections map[string]json.RawMessage) []string {
	names := make([]string, 0, len(collections))
	seen := map[string]bool{}
	for _, name := range declared {
		if _, ok := collections[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0)
	for name := range collections {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
