/*
Package triangulator computes Delaunay triangulations of planar point sets.

The engine validates an arbitrary set of 2D points, merges near-duplicates,
builds a Delaunay triangulation with exact geometric predicates and reports
classified errors for malformed or degenerate input. Around the engine the
module ships the adapters of a small service: an HTTP API, an MCP tool, a
client for the upstream point-set manager and result caches.

# Usage

A Service triangulates point sets passed in directly, or fetched by id from a
configured source.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/triangulator"
		"github.com/aretw0/triangulator/pkg/domain"
	)

	func main() {
		svc := triangulator.New()

		ps := domain.NewPointSet("", [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
		tri, err := svc.Triangulate(context.Background(), ps)
		if err != nil {
			log.Fatalf("%s: %v", domain.CodeOf(err), err)
		}
		fmt.Println(tri.Result().Triangles)
	}

Errors are classified with domain.CodeOf, which maps every failure onto a
stable code such as "degenerate_input" or "upstream_timeout".
*/
package triangulator
