// Package handle provides the id tables that stand in for host object
// references across the module boundary.
//
// Ids are 1-based: 0 is the null handle on both sides, and an id is the
// position of its object in the table. Deleting an object clears its slot but
// never compacts the table, so ids stay stable and are never handed out twice.
package handle
