// Package sqlite persists densified point clouds as single-file SQLite
// containers, one per scene.
//
// A container holds a datasets row describing the run, the four point
// arrays (vertices, colors, obj_ids, sem_ids) as gzip-compressed
// little-endian blobs, and the object label table used to colour them.
// The schema is managed by embedded golang-migrate migrations.
package sqlite
