// Package ordering keeps the todo list in a strict total order.
//
// Every live item carries a unique integer position; a higher position is
// listed first. Positions need not be contiguous, and deleting an item never
// renumbers the survivors.
//
// The Engine holds no state between calls. Each operation opens one store
// transaction, reads the current items, computes the new arrangement and
// writes it before committing, so a concurrent reader sees either the old or
// the new arrangement and never a mix of the two.
//
// Two reorders that touch the same items are not ordered relative to each
// other: whichever commits last wins. There is no version check.
package ordering
