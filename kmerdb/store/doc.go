// Package store provides the persisted file format and the mmap-backed view used by
// kmerdb.Open, kmerdb.Load and (*kmerdb.Database).WriteTo.
//
// The file format consists of (all multi-byte fields little-endian):
//   - Header (20 bytes): magic "DBBR", entry count, species count, probability offset
//   - Species table: per species a 64-byte NUL padded name and a uint32 sample count
//   - Probability section: per k-mer, ascending by code, a uint64 code followed by one
//     float32 per species
package store
