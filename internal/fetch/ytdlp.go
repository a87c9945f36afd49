package fetch

import (
	"context"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// Progress sampling interval for the yt-dlp callback
const progressInterval = 500 * time.Millisecond

// YTDLP adapts the go-ytdlp library to the Fetcher capability.
type YTDLP struct{}

// NewYTDLP creates the yt-dlp backed fetcher.
func NewYTDLP() *YTDLP {
	return &YTDLP{}
}

// Fetch downloads sourceRef to destPath. destPath is passed to yt-dlp
// as a literal output template, so the caller's temp naming stays
// authoritative. Cancelling ctx aborts the download.
func (y *YTDLP) Fetch(ctx context.Context, sourceRef, destPath string, onProgress func(Progress)) (string, error) {
	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Output(destPath)

	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if onProgress == nil {
			return
		}

		p := Progress{
			Downloaded: int64(update.DownloadedBytes),
			Total:      int64(update.TotalBytes),
		}
		if update.TotalBytes > 0 {
			p.Percent = int(float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100)
		}
		if !update.Started.IsZero() {
			if elapsed := time.Since(update.Started); elapsed.Seconds() > 0 {
				p.Rate = float64(update.DownloadedBytes) / elapsed.Seconds()
			}
		}

		onProgress(p)
	})

	result, err := dl.Run(ctx, sourceRef)
	if err != nil {
		return "", err
	}

	// Prefer the path the extractor reports; it reflects what was
	// actually written when yt-dlp adjusts the name.
	if result != nil {
		if info, infoErr := result.GetExtractedInfo(); infoErr == nil && len(info) > 0 {
			if info[0].Filename != nil && *info[0].Filename != "" {
				return *info[0].Filename, nil
			}
		}
	}

	return destPath, nil
}
