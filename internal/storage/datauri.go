package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

var ErrBadDataURI = errors.New("invalid image data URI")

// imageExt lists the content types accepted for images.
var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ImageExt returns the file extension for an accepted image type.
func ImageExt(contentType string) (string, bool) {
	ext, ok := imageExt[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// DecodeDataURI parses "data:image/png;base64,...." into its content type
// and bytes.  The declared type must agree with the sniffed one.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrBadDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrBadDataURI
	}
	ct, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return "", nil, ErrBadDataURI
	}
	if _, ok := ImageExt(ct); !ok {
		return "", nil, ErrBadDataURI
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadBytes {
		return "", nil, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", nil, ErrBadDataURI
	}
	if sniffed := http.DetectContentType(data); sniffed != ct {
		return "", nil, ErrBadDataURI
	}
	return ct, data, nil
}

// UploadDataURIs stores every data URI under category and returns the
// public URLs in input order.  Objects already written are removed again
// when a later one fails.
func UploadDataURIs(ctx context.Context, st Store, category string, uris []string, now time.Time) ([]string, error) {
	type upload struct {
		ct   string
		data []byte
	}
	decoded := make([]upload, 0, len(uris))
	for _, u := range uris {
		ct, data, err := DecodeDataURI(u)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, upload{ct: ct, data: data})
	}
	urls := make([]string, 0, len(decoded))
	keys := make([]string, 0, len(decoded))
	for i, d := range decoded {
		ext, _ := ImageExt(d.ct)
		key := ObjectKey(category, ext, now.Add(time.Duration(i)))
		url, err := st.Put(ctx, key, bytes.NewReader(d.data), d.ct)
		if err != nil {
			for _, k := range keys {
				_ = st.Delete(context.WithoutCancel(ctx), k)
			}
			return nil, err
		}
		keys = append(keys, key)
		urls = append(urls, url)
	}
	return urls, nil
}
