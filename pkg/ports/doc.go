/*
Package ports defines the driven ports (interfaces) for graphlab.

These interfaces decouple the session manager from external implementations, allowing
sessions to be kept in memory or in Redis.

# Key Interfaces

  - SessionStore: Responsible for persisting and loading session checkpoints.
  - DistributedLocker: Provides distributed locking for serializing steps across replicas.
*/
package ports
