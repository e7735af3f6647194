// Package media is the media-host port: proof-of-payment images go to an
// external image host which hands back a public URL. The tracker only ever
// stores the URL.
package media

import (
	"context"
	"io"
)

// Uploader sends image bytes to the media host and returns the hosted URL.
// A failed upload must abort the pending ledger write; no contribution is
// persisted with a half-finished upload.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (url string, err error)
}
