// Package csvdb provides a schema-less, CSV-backed table model.
//
// # Overview
//
// A [Table] is an ordered list of [Row] values plus a column registry. Rows are
// open maps: a key that is absent from a row reads as [Missing], and writing a
// value under an unknown column grows the registry for every row. Cells are
// [Value] tagged unions so that "missing" stays distinct from the empty string.
//
// # File Format
//
// A UTF-8, comma-separated file with a header row. There is no persisted
// schema: each column type is inferred independently every time the file is
// decoded. [WriteFile] replaces the target atomically by writing a sibling
// temporary file and renaming it over the original, so readers never observe a
// partial write and a crash mid-write leaves the previous content intact.
//
// # Concurrency
//
// None. A Table is a plain value owned by its caller; the file is the only
// shared state and concurrent writers race (last rename wins).
package csvdb
