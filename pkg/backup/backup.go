package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	namePrefix = "backup-"
	nameSuffix = ".json"
	timeLayout = "20060102-150405.000000"
)

// BackupData is the envelope written for every backup. Items holds the
// caller's records as JSON.
type BackupData struct {
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      string            `json:"kind"`
	Count     int               `json:"count"`
	Items     json.RawMessage   `json:"items"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Decode unmarshals Items into v.
func (d *BackupData) Decode(v interface{}) error {
	if len(d.Items) == 0 {
		return fmt.Errorf("backup %s has no items", d.Kind)
	}
	return json.Unmarshal(d.Items, v)
}

// Storage defines interface for backup storage
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// BackupService handles backup operations
type BackupService struct {
	storage Storage
	version string
	now     func() time.Time
}

func NewBackupService(storage Storage, version string) *BackupService {
	return &BackupService{
		storage: storage,
		version: version,
		now:     time.Now,
	}
}

// CreateBackup stores items of the given kind and returns the backup name.
func (bs *BackupService) CreateBackup(ctx context.Context, kind string, items interface{}, count int, metadata map[string]string) (string, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup items: %w", err)
	}

	data := BackupData{
		Version:   bs.version,
		Timestamp: bs.now().UTC(),
		Kind:      kind,
		Count:     count,
		Items:     raw,
		Metadata:  metadata,
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup data: %w", err)
	}

	name := namePrefix + data.Timestamp.Format(timeLayout) + nameSuffix
	if err := bs.storage.Save(ctx, name, bytes.NewReader(encoded)); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	return name, nil
}

// RestoreBackup loads a backup envelope.
func (bs *BackupService) RestoreBackup(ctx context.Context, name string) (*BackupData, error) {
	reader, err := bs.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup: %w", err)
	}
	defer reader.Close()

	var data BackupData
	if err := json.NewDecoder(reader).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backup data: %w", err)
	}
	if data.Version == "" {
		return nil, fmt.Errorf("invalid backup %s: missing version", name)
	}
	return &data, nil
}

// ListBackups lists all available backups, oldest first.
func (bs *BackupService) ListBackups(ctx context.Context) ([]string, error) {
	return bs.storage.List(ctx, namePrefix)
}

func (bs *BackupService) DeleteBackup(ctx context.Context, name string) error {
	return bs.storage.Delete(ctx, name)
}

// PruneBefore deletes backups created before cutoff and returns their names.
// Names that do not carry a backup timestamp are left alone.
func (bs *BackupService) PruneBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	names, err := bs.ListBackups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var deleted []string
	for _, name := range names {
		created, err := ParseBackupTime(name)
		if err != nil || !created.Before(cutoff) {
			continue
		}
		if err := bs.DeleteBackup(ctx, name); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %s: %w", name, err)
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// ParseBackupTime extracts the creation time from a backup name.
func ParseBackupTime(name string) (time.Time, error) {
	if !strings.HasPrefix(name, namePrefix) || !strings.HasSuffix(name, nameSuffix) {
		return time.Time{}, fmt.Errorf("not a backup name: %q", name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), nameSuffix)
	return time.Parse(timeLayout, stamp)
}
