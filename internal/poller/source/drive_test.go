package source

import "testing"

func TestParseDriveURLFolder(t *testing.T) {
	id, isFolder, ok := parseDriveURL("https://drive.google.com/drive/folders/abc123XYZ")
	if !ok || !isFolder || id != "abc123XYZ" {
		t.Fatalf("got id=%q isFolder=%v ok=%v", id, isFolder, ok)
	}
}

func TestParseDriveURLDocument(t *testing.T) {
	id, isFolder, ok := parseDriveURL("https://docs.google.com/document/d/doc-id-1/edit")
	if !ok || isFolder || id != "doc-id-1" {
		t.Fatalf("got id=%q isFolder=%v ok=%v", id, isFolder, ok)
	}
}

func TestParseDriveURLSpreadsheet(t *testing.T) {
	id, isFolder, ok := parseDriveURL("https://docs.google.com/spreadsheets/d/sheet-42/edit#gid=0")
	if !ok || isFolder || id != "sheet-42" {
		t.Fatalf("got id=%q isFolder=%v ok=%v", id, isFolder, ok)
	}
}

func TestParseDriveURLFileLink(t *testing.T) {
	id, isFolder, ok := parseDriveURL("https://drive.google.com/file/d/file-7/view")
	if !ok || isFolder || id != "file-7" {
		t.Fatalf("got id=%q isFolder=%v ok=%v", id, isFolder, ok)
	}
}

func TestParseDriveURLOpenIDLink(t *testing.T) {
	id, isFolder, ok := parseDriveURL("https://drive.google.com/open?id=open-id-9")
	if !ok || isFolder || id != "open-id-9" {
		t.Fatalf("got id=%q isFolder=%v ok=%v", id, isFolder, ok)
	}
}

func TestParseDriveURLUnrecognized(t *testing.T) {
	_, _, ok := parseDriveURL("https://example.com/not-a-drive-link")
	if ok {
		t.Fatalf("expected unrecognized URL to not match")
	}
}
