// Package fetch implements the download stage built on top of yt-dlp
// (via github.com/lrstanley/go-ytdlp). A Worker downloads one item to
// its temp path, relays progress through the bridge, publishes the file
// with an atomic rename, and cleans up partial artifacts on failure or
// cancellation.
package fetch
