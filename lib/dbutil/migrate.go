package dbutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/petlaDB/lib/document"
)

// LegacyCollections are the keys the previous storage format kept one JSON array under
var LegacyCollections = []string{
	"usuarios",
	"mascotas",
	"citas",
	"preCitas",
	"historialClinico",
	"suscriptoresNewsletter",
	"newsletterEmails",
	"notificaciones",
}

// legacyDateLayouts are tried in order when a legacy date string is coerced
var legacyDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// MigrationResult reports what MigrateFromOldFormat did
type MigrationResult struct {
	Success             bool     `json:"success"`
	MigratedCollections []string `json:"migratedCollections"`
	Errors              []string `json:"errors"`
}

// MigrateFromOldFormat moves the legacy arrays into collections. The old "id" field
// is dropped (documents get new ids) and string fields whose name contains "fecha",
// "Date" or "At" become dates when they parse. A legacy key is deleted only if all
// its elements were migrated.
func (u *Utils) MigrateFromOldFormat() MigrationResult {
	result := MigrationResult{MigratedCollections: []string{}, Errors: []string{}}

	for _, key := range LegacyCollections {
		migrated, total, err := u.migrateCollection(key, &result)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to migrate collection %s: %v", key, err))
			continue
		}
		if migrated == 0 {
			continue
		}
		result.MigratedCollections = append(result.MigratedCollections, fmt.Sprintf("%s (%d documents)", key, migrated))

		if migrated < total {
			log.Warningf("kept legacy key %s, only %d of %d documents migrated", key, migrated, total)
			continue
		}
		if err := u.st.Delete(key); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to remove legacy key %s: %v", key, err))
		}
	}

	result.Success = len(result.Errors) == 0
	log.Infof("migration finished: %d collections migrated, %d errors",
		len(result.MigratedCollections), len(result.Errors))
	return result
}

// migrateCollection returns the number of migrated elements and the number of elements
func (u *Utils) migrateCollection(key string, result *MigrationResult) (int, int, error) {
	data, found, err := u.st.Get(key)
	if err != nil || !found || len(data) == 0 {
		return 0, 0, err
	}
	value, err := document.ParseJSON(data)
	if err != nil {
		return 0, 0, err
	}
	items, ok := value.AsArray()
	if !ok || len(items) == 0 {
		return 0, 0, nil
	}

	if err := u.db.CreateCollection(key); err != nil {
		return 0, len(items), err
	}

	migrated := 0
	for _, item := range items {
		fields, ok := item.AsDocument()
		if !ok {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Failed to migrate document in %s: expected an object, got %s", key, item.Kind()))
			continue
		}
		if _, err := u.db.InsertOne(key, convertLegacy(fields)); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to migrate document in %s: %v", key, err))
			continue
		}
		migrated++
	}
	return migrated, len(items), nil
}

// convertLegacy drops the old id and coerces date fields
func convertLegacy(fields document.Fields) document.Fields {
	out := fields.Clone()
	out.Delete("id")
	for i, field := range out {
		if !isDateField(field.Name) {
			continue
		}
		s, ok := field.Value.AsString()
		if !ok {
			continue
		}
		if t, ok := parseLegacyDate(s); ok {
			out[i].Value = document.Date(t)
		}
	}
	return out
}

func isDateField(name string) bool {
	return strings.Contains(name, "fecha") || strings.Contains(name, "Date") || strings.Contains(name, "At")
}

func parseLegacyDate(s string) (time.Time, bool) {
	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
