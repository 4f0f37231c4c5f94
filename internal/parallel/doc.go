// Package parallel provides a bounded-concurrency worker pool.
//
// The initial vault scan reads and parses documents through the pool so a
// large vault does not open every file at once.
package parallel
