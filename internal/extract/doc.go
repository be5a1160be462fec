// Package extract implements the metadata capabilities registered with the
// dispatcher: audio tags, video container metadata and source code line
// statistics.
package extract
