// Package histo holds the data model shared by the heap histogram trend
// analysis: class identities, name pattern sets, per-snapshot measurements
// and the closed set of analysis verdicts.
package histo
