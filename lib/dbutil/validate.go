package dbutil

import (
	"fmt"
)

// ValidationResult lists the problems found by ValidateDatabase
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateDatabase checks every document for its mandatory fields and the storage
// usage against the ceiling. Missing ids are errors, everything else is a warning.
func (u *Utils) ValidateDatabase() ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	collections, err := u.db.ListCollections()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Database validation failed: %v", err))
		return result
	}
	if len(collections) == 0 {
		result.Warnings = append(result.Warnings, "No collections found - database is empty")
	}

	for _, collection := range collections {
		docs, err := u.db.Find(collection, nil, nil)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to validate collection %s: %v", collection, err))
			continue
		}
		for _, doc := range docs {
			if doc.ID() == "" {
				result.Errors = append(result.Errors, fmt.Sprintf("Document missing _id in collection %s", collection))
			}
			if doc.CreatedAt().IsZero() {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Document missing createdAt in collection %s", collection))
			}
			if doc.UpdatedAt().IsZero() {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Document missing updatedAt in collection %s", collection))
			}
		}
	}

	info, err := u.GetStorageInfo()
	switch {
	case err != nil:
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read storage usage: %v", err))
	case info.Percentage > 90:
		result.Warnings = append(result.Warnings, "Storage usage above 90% - consider cleaning or backing up data")
	case info.Percentage > 75:
		result.Warnings = append(result.Warnings, "Storage usage above 75% - monitor space usage")
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
