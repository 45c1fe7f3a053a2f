/*
Package domain contains the core models shared by every layer of the
triangulator.

It is kept pure and free of I/O, following Hexagonal Architecture principles:
adapters translate their inputs into these types and map the errors declared
here onto their own transports.

# Key Entities

  - Point: an input coordinate pair with its identifier in the point set.
  - PointSet: the ordered sequence of points fetched from the point-set manager.
  - Merge / DedupReport: the record of near-duplicate points folded together.
  - Code: the stable, transport-neutral classification of every failure.
*/
package domain
