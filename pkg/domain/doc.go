/*
Package domain contains the core types of the firestream driver.

It defines the closed set of commands (actions) the driver understands, the
values the backend hands back (users, credentials, snapshots), configuration
and lifecycle hooks. This package is kept pure and free of I/O, following
Hexagonal Architecture principles: backends live behind pkg/ports and are
implemented in pkg/adapters.

# Key Entities

  - Action: an immutable, tagged command with an optional correlation key.
  - Payload: the closed variant of typed command payloads, one per Kind.
  - User, Credential, UserCredential: auth values returned by the backend.
  - Snapshot: the value of a database location at a point in time.
  - Config: connection parameters plus driver settings.
*/
package domain
