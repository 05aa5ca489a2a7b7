// Package winmd reads ECMA-335 metadata containers (.winmd files).
//
// A loaded File owns the raw bytes for the lifetime of a generation run and
// exposes random-access, read-only table and heap accessors. Higher layers
// never hold pointers into the buffer: every handle is a small copyable
// (file, table, row) tuple resolved back into the buffer on demand, so
// handles are trivially shareable across concurrent emission tasks.
package winmd
