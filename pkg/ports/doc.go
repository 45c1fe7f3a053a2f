/*
Package ports defines the driven ports (interfaces) of the triangulator.

These interfaces decouple the service from external implementations, allowing
it to fetch point sets from the point-set manager, a directory or memory, and
to cache results in memory or redis.

# Key Interfaces

  - PointSetSource: fetches a point set by identifier.
  - ResultCache: stores computed results keyed by point-set identifier.
  - DistributedLocker: serializes the computation of one point set across replicas.

Each interface ships a reusable contract suite (RunPointSetSourceContract,
RunResultCacheContract) that adapters run from their own tests.
*/
package ports
