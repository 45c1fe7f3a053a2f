package triangulator

import "github.com/aretw0/triangulator/pkg/domain"

// Document is the JSON form of a triangulation returned by the HTTP API and
// the MCP tool.
type Document struct {
	PointSetID  string         `json:"pointSetId,omitempty"`
	Triangles   [][3]int       `json:"triangles"`
	Hull        []int          `json:"hull"`
	VertexCount int            `json:"vertexCount"`
	EdgeCount   int            `json:"edgeCount"`
	DedupCount  int            `json:"dedupCount"`
	Merges      []domain.Merge `json:"merges"`
}

// NewDocument converts a result into its JSON document.
func NewDocument(r *domain.Result) Document {
	merges := r.Dedup.Merges
	if merges == nil {
		merges = []domain.Merge{}
	}
	triangles := r.Triangles
	if triangles == nil {
		triangles = [][3]int{}
	}
	hull := r.Hull
	if hull == nil {
		hull = []int{}
	}
	return Document{
		PointSetID:  r.PointSet.ID,
		Triangles:   triangles,
		Hull:        hull,
		VertexCount: r.VertexCount,
		EdgeCount:   r.EdgeCount,
		DedupCount:  r.Dedup.Count(),
		Merges:      merges,
	}
}
