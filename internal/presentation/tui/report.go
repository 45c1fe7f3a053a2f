package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/triangulator/pkg/domain"
)

// MaxListed bounds the triangles and merges listed in a report.
const MaxListed = 20

// Report renders a triangulation result as markdown.
func Report(res *domain.Result, elapsed time.Duration) string {
	var sb strings.Builder

	title := "Triangulation"
	if res.PointSet.ID != "" {
		title += " of `" + res.PointSet.ID + "`"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	sb.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&sb, "| Points | %d |\n", res.PointSet.Len())
	fmt.Fprintf(&sb, "| Vertices | %d |\n", res.VertexCount)
	fmt.Fprintf(&sb, "| Triangles | %d |\n", len(res.Triangles))
	fmt.Fprintf(&sb, "| Edges | %d |\n", res.EdgeCount)
	fmt.Fprintf(&sb, "| Hull vertices | %d |\n", len(res.Hull))
	fmt.Fprintf(&sb, "| Merged points | %d |\n", res.Dedup.Count())
	fmt.Fprintf(&sb, "| Tolerance | %.3g |\n", res.Dedup.Tolerance)
	if elapsed > 0 {
		fmt.Fprintf(&sb, "| Time | %v |\n", elapsed.Round(time.Microsecond))
	}

	sb.WriteString("\n## Hull\n\n")
	sb.WriteString(joinInts(res.Hull, MaxListed*2))
	sb.WriteString("\n")

	if len(res.Dedup.Merges) > 0 {
		sb.WriteString("\n## Merges\n\n")
		for i, m := range res.Dedup.Merges {
			if i == MaxListed {
				fmt.Fprintf(&sb, "- … %d more\n", len(res.Dedup.Merges)-MaxListed)
				break
			}
			fmt.Fprintf(&sb, "- %d ← %s\n", m.Kept, joinInts(m.Dropped, MaxListed))
		}
	}

	sb.WriteString("\n## Triangles\n\n| # | a | b | c |\n|---:|---:|---:|---:|\n")
	for i, t := range res.Triangles {
		if i == MaxListed {
			fmt.Fprintf(&sb, "\n_%d more not shown._\n", len(res.Triangles)-MaxListed)
			break
		}
		fmt.Fprintf(&sb, "| %d | %d | %d | %d |\n", i, t[0], t[1], t[2])
	}
	return sb.String()
}

// FailureReport renders a classified failure as markdown.
func FailureReport(err error) string {
	return fmt.Sprintf("# Triangulation failed\n\n**%s**: %v\n", domain.CodeOf(err), err)
}

func joinInts(xs []int, limit int) string {
	parts := make([]string, 0, min(len(xs), limit)+1)
	for i, x := range xs {
		if i == limit {
			parts = append(parts, fmt.Sprintf("… %d more", len(xs)-limit))
			break
		}
		parts = append(parts, fmt.Sprint(x))
	}
	return strings.Join(parts, ", ")
}
