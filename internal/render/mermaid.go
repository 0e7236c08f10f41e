package render

import (
	"fmt"
	"strings"

	"github.com/rendis/txlens/pkg/schema"
)

// Mermaid renders a computed layout as a Mermaid flowchart string.
// A read-only export: positions are not carried over, only structure and
// execution state.
func Mermaid(title string, nodes []schema.LayoutNode, edges []schema.LayoutEdge) string {
	var b strings.Builder

	b.WriteString("graph LR\n")

	// Title as comment.
	if title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", title))
	}

	// Render nodes. Group headers become subroutine-shaped boxes.
	for _, node := range nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(&node)))
	}

	// Render edges. Cross-group connections are dashed.
	grouped := hasGroups(nodes)
	for _, edge := range edges {
		arrow := "-->"
		if grouped && !edge.SameGroup {
			arrow = "-.->"
		}
		b.WriteString(fmt.Sprintf("    %s %s %s\n",
			mermaidSafeID(edge.Source), arrow, mermaidSafeID(edge.Target)))
	}

	// Execution state class definitions.
	b.WriteString("\n")
	b.WriteString("    classDef completed fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef executing fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef failed fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef pending fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	// Apply execution state classes.
	for _, node := range nodes {
		cls := mermaidStateClass(node.ExecutionState)
		if cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", mermaidSafeID(node.ID), cls))
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *schema.LayoutNode) string {
	id := mermaidSafeID(node.ID)
	label := node.Label
	if label == "" {
		label = node.ID
	}
	if node.Header {
		return fmt.Sprintf("%s[[%q]]", id, label)
	}
	return fmt.Sprintf("%s[%q]", id, label)
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidStateClass maps an execution state to a Mermaid class name.
func mermaidStateClass(state schema.ExecutionState) string {
	switch state {
	case schema.ExecutionStateCompleted:
		return "completed"
	case schema.ExecutionStateExecuting:
		return "executing"
	case schema.ExecutionStateFailed:
		return "failed"
	case schema.ExecutionStatePending:
		return "pending"
	default:
		return ""
	}
}

// hasGroups reports whether any node carries a vertical-mode group index.
func hasGroups(nodes []schema.LayoutNode) bool {
	for _, n := range nodes {
		if n.Header || n.GroupIndex > 0 {
			return true
		}
	}
	return false
}
