package source

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/sukru-can1/agent1go/internal/kv"
	"github.com/sukru-can1/agent1go/internal/model"
	"github.com/sukru-can1/agent1go/internal/poller"
	"github.com/sukru-can1/agent1go/internal/store"
)

// DriveConfig configures the drive poller.
type DriveConfig struct {
	TokenSource oauth2.TokenSource
}

var drivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`drive\.google\.com/drive/folders/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`docs\.google\.com/(?:document|spreadsheets|presentation)/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`),
}

// isFolderPattern reports whether the matched pattern index parses a folder
// URL (only index 0 does, per the original's pattern table).
func isFolderPattern(idx int) bool { return idx == 0 }

// parseDriveURL extracts (resourceID, isFolder) from a watched Drive URL.
func parseDriveURL(url string) (string, bool, bool) {
	for i, p := range drivePatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], isFolderPattern(i), true
		}
	}
	return "", false, false
}

// Drive polls watched Google Drive files/folders for changes, grounded on
// drive_poller.py. Watch URLs are read from the config table's
// drive_watch_urls key rather than hardcoded, as the original does.
type Drive struct {
	svc   *drive.Service
	kv    *kv.Store
	store *store.Store
}

// NewDrive constructs a Drive poller. Returns nil if TokenSource is unset.
func NewDrive(ctx context.Context, cfg DriveConfig, kvStore *kv.Store, db *store.Store) (*Drive, error) {
	if cfg.TokenSource == nil {
		return nil, nil
	}
	svc, err := drive.NewService(ctx, option.WithTokenSource(cfg.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("drive: creating drive service: %w", err)
	}
	return &Drive{svc: svc, kv: kvStore, store: db}, nil
}

// Name identifies this source for dedup key namespacing.
func (d *Drive) Name() string { return "gdrive" }

type driveWatch struct {
	URL string `json:"url"`
}

// Poll iterates the configured watch list and detects new/modified files.
func (d *Drive) Poll(ctx context.Context) ([]poller.Candidate, error) {
	raw, ok, err := d.store.GetConfigValue(ctx, "drive_watch_urls")
	if err != nil {
		return nil, fmt.Errorf("loading drive_watch_urls: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var watches []driveWatch
	if err := json.Unmarshal([]byte(raw), &watches); err != nil {
		return nil, fmt.Errorf("parsing drive_watch_urls: %w", err)
	}

	var out []poller.Candidate
	for _, w := range watches {
		resourceID, isFolder, ok := parseDriveURL(w.URL)
		if !ok {
			continue
		}

		var changes []driveChange
		if isFolder {
			changes, err = d.checkFolder(ctx, resourceID)
		} else {
			var c *driveChange
			c, err = d.checkFile(ctx, resourceID)
			if c != nil {
				changes = []driveChange{*c}
			}
		}
		if err != nil {
			continue // one bad watch doesn't abort the whole poll
		}

		for _, c := range changes {
			eventType := "drive_file_changed"
			if c.ChangeType == "new_file" {
				eventType = "drive_new_file"
			}
			ev := model.NewEvent(model.SourceDrive, eventType, model.PriorityLow, map[string]any{
				"file_id":       c.FileID,
				"file_name":     c.FileName,
				"mime_type":     c.MimeType,
				"modified_time": c.ModifiedTime,
				"modified_by":   c.ModifiedBy,
				"web_link":      c.WebLink,
				"change_type":   c.ChangeType,
				"watch_url":     w.URL,
			})
			dedupKey := c.FileID + ":" + c.ModifiedTime
			ev.IdempotencyKey = "gdrive:" + dedupKey
			out = append(out, poller.Candidate{Event: ev, DedupKey: dedupKey})
		}
	}
	return out, nil
}

type driveChange struct {
	FileID, FileName, MimeType, ModifiedTime, ModifiedBy, WebLink, ChangeType string
}

func (d *Drive) checkFile(ctx context.Context, fileID string) (*driveChange, error) {
	meta, err := d.svc.Files.Get(fileID).
		Fields("id,name,mimeType,modifiedTime,lastModifyingUser,webViewLink").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	prev, err := d.kv.DriveFileMtime(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if err := d.kv.SetDriveFileMtime(ctx, fileID, meta.ModifiedTime); err != nil {
		return nil, err
	}
	if prev == "" || prev == meta.ModifiedTime {
		return nil, nil
	}

	return &driveChange{
		FileID: fileID, FileName: meta.Name, MimeType: meta.MimeType,
		ModifiedTime: meta.ModifiedTime, ModifiedBy: modifierName(meta.LastModifyingUser),
		WebLink: meta.WebViewLink, ChangeType: "modified",
	}, nil
}

func (d *Drive) checkFolder(ctx context.Context, folderID string) ([]driveChange, error) {
	resp, err := d.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
		Fields("files(id,name,mimeType,modifiedTime,lastModifyingUser,webViewLink)").
		PageSize(100).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	currentIDs := make([]string, 0, len(resp.Files))
	for _, f := range resp.Files {
		currentIDs = append(currentIDs, f.Id)
	}
	prevSet, err := d.kv.DriveFolderSnapshot(ctx, folderID)
	if err != nil {
		return nil, err
	}
	firstScan := len(prevSet) == 0
	if err := d.kv.SetDriveFolderSnapshot(ctx, folderID, currentIDs); err != nil {
		return nil, err
	}

	var changes []driveChange
	for _, f := range resp.Files {
		prevMtime, err := d.kv.DriveFileMtime(ctx, f.Id)
		if err != nil {
			return nil, err
		}
		if err := d.kv.SetDriveFileMtime(ctx, f.Id, f.ModifiedTime); err != nil {
			return nil, err
		}
		if firstScan {
			continue
		}

		info := driveChange{
			FileID: f.Id, FileName: f.Name, MimeType: f.MimeType,
			ModifiedTime: f.ModifiedTime, ModifiedBy: modifierName(f.LastModifyingUser),
			WebLink: f.WebViewLink,
		}
		switch {
		case !prevSet[f.Id]:
			info.ChangeType = "new_file"
			changes = append(changes, info)
		case prevMtime != "" && prevMtime != f.ModifiedTime:
			info.ChangeType = "modified"
			changes = append(changes, info)
		}
	}
	return changes, nil
}

func modifierName(u *drive.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.EmailAddress
}
