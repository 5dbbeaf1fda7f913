package tool

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
)

// RegisterDriveTools wires the drive_* tools from registry.py's
// GDriveSearchTool/GDriveReadDocumentTool onto a live Drive service,
// grounded on internal/poller/source/drive.go's client construction.
func RegisterDriveTools(r *Registry, svc *drive.Service) error {
	if svc == nil {
		return nil
	}
	tools := []*Tool{
		{
			Name:        "drive_search",
			Group:       "drive",
			Description: "Search Drive files by name or full-text content.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 50},
				},
				"required": []any{"query"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query := strArg(args, "query")
				limit := int64(intArg(args, "limit", 10))
				q := fmt.Sprintf("fullText contains %q and trashed = false", query)
				resp, err := svc.Files.List().Q(q).PageSize(limit).
					Fields("files(id,name,mimeType,webViewLink,modifiedTime)").Context(ctx).Do()
				if err != nil {
					return nil, fmt.Errorf("drive_search: %w", err)
				}
				out := make([]map[string]any, 0, len(resp.Files))
				for _, f := range resp.Files {
					out = append(out, map[string]any{
						"file_id": f.Id, "name": f.Name, "mime_type": f.MimeType,
						"web_link": f.WebViewLink, "modified_time": f.ModifiedTime,
					})
				}
				return map[string]any{"files": out}, nil
			},
		},
		{
			Name:        "drive_read_document",
			Group:       "drive",
			Description: "Read the plain-text content of a Google Doc or text file by file ID.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_id": map[string]any{"type": "string"},
				},
				"required": []any{"file_id"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				fileID := strArg(args, "file_id")

				meta, err := svc.Files.Get(fileID).Fields("mimeType", "name").Context(ctx).Do()
				if err != nil {
					return nil, fmt.Errorf("drive_read_document: fetching metadata: %w", err)
				}

				var body []byte
				if strings.HasPrefix(meta.MimeType, "application/vnd.google-apps") {
					resp, err := svc.Files.Export(fileID, "text/plain").Context(ctx).Download()
					if err != nil {
						return nil, fmt.Errorf("drive_read_document: exporting: %w", err)
					}
					defer resp.Body.Close()
					body, err = readAllLimited(resp.Body, MaxDocumentBytes)
					if err != nil {
						return nil, fmt.Errorf("drive_read_document: reading export: %w", err)
					}
				} else {
					resp, err := svc.Files.Get(fileID).Context(ctx).Download()
					if err != nil {
						return nil, fmt.Errorf("drive_read_document: downloading: %w", err)
					}
					defer resp.Body.Close()
					body, err = readAllLimited(resp.Body, MaxDocumentBytes)
					if err != nil {
						return nil, fmt.Errorf("drive_read_document: reading: %w", err)
					}
				}

				return map[string]any{"name": meta.Name, "content": string(body)}, nil
			},
		},
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// MaxDocumentBytes caps how much of a Drive document a tool call reads into
// the reasoning loop's context.
const MaxDocumentBytes = 100_000
