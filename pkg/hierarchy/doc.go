/*
Package hierarchy is the read model of the three-level selection hierarchy.

Given the flat list of items at one level and the selection made at the level
above, it groups the visible items by parent, narrows them with a search
query, and provides the set algebra used by selection controls (toggle one,
toggle a group, select or clear everything) plus per-group statistics.

All functions are pure: inputs are never mutated and every result is a new
value. Stale ids in a downstream selection are tolerated; they simply stop
matching any visible item.
*/
package hierarchy
