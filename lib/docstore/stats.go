package docstore

import (
	"time"
)

// CollectionStats describes one collection
type CollectionStats struct {
	Documents   int   `json:"documents"`
	Indexes     int   `json:"indexes"`
	StorageSize int64 `json:"storageSize"` // bytes of the encoded documents
}

// Stats describes the database
type Stats struct {
	Database        string                     `json:"database"`
	Version         string                     `json:"version"`
	CreatedAt       time.Time                  `json:"createdAt"`
	LastBackup      *time.Time                 `json:"lastBackup"`
	Collections     int                        `json:"collections"`
	TotalDocuments  int                        `json:"totalDocuments"`
	StorageSize     int64                      `json:"storageSize"`
	CollectionStats map[string]CollectionStats `json:"collectionStats"`
}

// GetStats counts documents and indexes and sums the size of the stored documents
func (d *Database) GetStats() (Stats, error) {
	var stats Stats
	err := d.run("getStats", func() error {
		m, err := d.loadMetadata()
		if err != nil {
			return err
		}
		stats = Stats{
			Database:        d.name,
			Version:         m.Version,
			CreatedAt:       m.CreatedAt,
			LastBackup:      m.LastBackup,
			Collections:     len(m.Collections),
			CollectionStats: make(map[string]CollectionStats, len(m.Collections)),
		}

		for _, name := range m.Collections {
			ids, err := d.loadIDs(name)
			if err != nil {
				return err
			}
			cs := CollectionStats{Indexes: len(m.indexes(name))}
			for _, id := range ids {
				data, found, err := d.loadRaw(name, id)
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				cs.Documents++
				cs.StorageSize += int64(len(data))
			}
			stats.CollectionStats[name] = cs
			stats.TotalDocuments += cs.Documents
			stats.StorageSize += cs.StorageSize
		}
		return nil
	})
	return stats, err
}
