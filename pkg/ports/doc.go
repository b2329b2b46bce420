/*
Package ports defines the driven ports (interfaces) of the stepwise wizard engine.

These interfaces decouple the wizard core from external implementations, allowing
it to work with various storage backends, hierarchy data sources and submission
targets.

# Key Interfaces

  - SnapshotStore: Persists and loads session Snapshots (memory, file, redis, sqlite).
  - HierarchyProvider / RootProvider: Fetch hierarchy items filtered by parent ids.
  - Submitter: Receives a step payload and accepts or rejects it.
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
