/*
Package ports defines the driven ports (interfaces) of the forge host.

These interfaces decouple the scheduler from external implementations, so
instance snapshots can be kept in memory or in Redis and per-instance tick
exclusivity can be enforced across replicas.

# Key Interfaces

  - SnapshotStore: Persists and loads instance snapshots.
  - DistributedLocker: Provides distributed locking so one instance is ticked by one process at a time.
*/
package ports
