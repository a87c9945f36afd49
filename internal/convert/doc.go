// Package convert implements the audio conversion stage. A Worker
// validates its prerequisites, runs ffmpeg as a subprocess writing into
// a hidden staging directory, parses the machine-readable progress
// stream, and publishes the converted file with an atomic rename before
// removing the fetched original.
package convert
