/*
Package tree implements the JSON tree operations shared by the database
adapters.

A tree is plain decoded JSON (map[string]any, string, float64, bool). Every
write returns a new root and leaves the old one untouched, so adapters keep
the previous root around and diff the two with Events to notify listeners.
*/
package tree
