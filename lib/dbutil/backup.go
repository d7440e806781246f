package dbutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// ExportData returns a backup of the database
func (u *Utils) ExportData() ([]byte, error) {
	data, err := u.db.Backup()
	if err != nil {
		return nil, fmt.Errorf("failed to export data: %w", err)
	}
	return data, nil
}

// ImportData replaces the database with the content of a backup
func (u *Utils) ImportData(data []byte) error {
	if err := u.db.Restore(data, nil); err != nil {
		return fmt.Errorf("failed to import data: %w", err)
	}
	return nil
}

// DefaultBackupName returns petla_backup_YYYY-MM-DD.json for the current date
func (u *Utils) DefaultBackupName() string {
	return fmt.Sprintf("petla_backup_%s.json", u.now().UTC().Format("2006-01-02"))
}

// DownloadBackup writes a backup to path and returns the path written. An empty path
// or a directory gets the default file name. The file is replaced atomically.
func (u *Utils) DownloadBackup(path string) (string, error) {
	switch {
	case path == "":
		path = u.DefaultBackupName()
	case isDir(path):
		path = filepath.Join(path, u.DefaultBackupName())
	}

	data, err := u.db.Backup()
	if err != nil {
		return "", fmt.Errorf("failed to download backup: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to download backup: %w", err)
	}
	log.Infof("wrote backup of %s to %s", FormatBytes(int64(len(data))), path)
	return path, nil
}

// UploadBackup reads a backup file. Comments and trailing commas are accepted and
// removed, the result is standard JSON.
func (u *Utils) UploadBackup(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return standardized, nil
}

// RestoreFromFile reads a backup file and restores it
func (u *Utils) RestoreFromFile(path string, opts *docstore.RestoreOptions) error {
	data, err := u.UploadBackup(path)
	if err != nil {
		return err
	}
	if err := u.db.Restore(data, opts); err != nil {
		return fmt.Errorf("failed to restore %s: %w", path, err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
