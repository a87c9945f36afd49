package fetch

import "context"

// Progress is one status sample from the fetch capability.
type Progress struct {
	Percent    int     // 0..100, 0 when total size unknown
	Downloaded int64   // bytes written so far
	Total      int64   // expected total bytes, 0 when unknown
	Rate       float64 // bytes per second, 0 when unknown
}

// Fetcher is the external download capability. Implementations write
// the media to destPath, invoke onProgress periodically, and honor
// context cancellation. The returned path is the file actually written
// (normally destPath).
type Fetcher interface {
	Fetch(ctx context.Context, sourceRef, destPath string, onProgress func(Progress)) (string, error)
}
