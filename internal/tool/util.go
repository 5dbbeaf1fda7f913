package tool

import (
	"bytes"
	"encoding/base64"
	"io"
)

func base64URLEncode(b []byte) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b)
}

func strArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
