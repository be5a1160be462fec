// Package ffprobe runs ffprobe and decodes its JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate, tags)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns the parsed Result
//   - Parse: decodes previously captured ffprobe JSON
package ffprobe
