/*
Package ports defines the driven ports (interfaces) of the firestream driver.

The driver never talks to a concrete backend. It receives a Backend handle at
construction time and threads it through the executor and the state source
tree, so any implementation satisfying these interfaces (in-memory, Redis,
or a real network client) can be substituted.

# Key Interfaces

  - Auth: promise-like account calls plus auth state and ID token notifications.
  - Database: the realtime tree database and its online/offline switch.
  - Reference: one database location; writes, reads and event listeners.
  - Backend: the pair handed to the driver.

Notification registration returns a stream.Token; the same token must be
handed back to unregister. Pairing never depends on callback identity.
*/
package ports
