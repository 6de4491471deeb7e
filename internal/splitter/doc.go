// Package splitter partitions a basket into delivery groups. It searches for
// the grouping that uses the fewest delivery methods and, among those, the one
// whose largest group holds the most items.
package splitter
