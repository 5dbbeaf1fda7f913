package kv

import (
	"context"
	"time"
)

// IsDuplicate reports whether an item with this source+identifier was
// already seen within the dedup TTL window. Used by pollers to avoid
// re-publishing the same upstream item on overlapping look-back windows.
func (s *Store) IsDuplicate(ctx context.Context, source, identifier string) (bool, error) {
	n, err := s.rdb.Exists(ctx, dedupKey(source, identifier)).Result()
	return n > 0, err
}

// MarkProcessed records a source+identifier as seen for dedupTTL.
func (s *Store) MarkProcessed(ctx context.Context, source, identifier string, dedupTTL time.Duration) error {
	return s.rdb.Set(ctx, dedupKey(source, identifier), "1", dedupTTL).Err()
}

// DriveFolderSnapshot returns the previously recorded file-id set for a
// drive folder, used to tell new files from modified ones.
func (s *Store) DriveFolderSnapshot(ctx context.Context, folderID string) (map[string]bool, error) {
	members, err := s.rdb.SMembers(ctx, driveFolderKey(folderID)).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set, nil
}

// SetDriveFolderSnapshot replaces the recorded file-id set for a folder.
func (s *Store) SetDriveFolderSnapshot(ctx context.Context, folderID string, fileIDs []string) error {
	key := driveFolderKey(folderID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(fileIDs) > 0 {
		members := make([]any, len(fileIDs))
		for i, id := range fileIDs {
			members[i] = id
		}
		pipe.SAdd(ctx, key, members...)
	}
	pipe.Expire(ctx, key, DriveSnapshotTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// DriveFileMtime returns the last-seen modified time string for a file id.
func (s *Store) DriveFileMtime(ctx context.Context, fileID string) (string, error) {
	return s.rdb.Get(ctx, driveMtimeKey(fileID)).Result()
}

// SetDriveFileMtime records the last-seen modified time string for a file id.
func (s *Store) SetDriveFileMtime(ctx context.Context, fileID, mtime string) error {
	return s.rdb.Set(ctx, driveMtimeKey(fileID), mtime, DriveSnapshotTTL).Err()
}
