package ui

import (
	"fmt"
	"heapstore/pkg/storage/heap"
	"strings"
)

// slotsPerRow is the width of the occupancy grid.
const slotsPerRow = 32

// renderBitmap draws the slot occupancy of hp as rows of '#' (used) and
// '.' (free), each row prefixed with its first slot number.
func renderBitmap(hp *heap.HeapPage) string {
	var sb strings.Builder
	n := hp.NumSlots()
	for start := 0; start < n; start += slotsPerRow {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("%5d ", start)))
		for i := start; i < start+slotsPerRow && i < n; i++ {
			if hp.IsSlotUsed(i) {
				sb.WriteString(usedSlotStyle.Render("#"))
			} else {
				sb.WriteString(freeSlotStyle.Render("."))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// renderTuples lists the tuple in every used slot of hp.
func renderTuples(hp *heap.HeapPage) string {
	var sb strings.Builder
	for i := range hp.NumSlots() {
		t, err := hp.GetTupleAt(i)
		if err != nil || t == nil {
			continue
		}
		fmt.Fprintf(&sb, "%s %s\n", mutedStyle.Render(fmt.Sprintf("slot %4d", i)), t.String())
	}
	if sb.Len() == 0 {
		return mutedStyle.Render("(no tuples)") + "\n"
	}
	return sb.String()
}

// renderPage is the full body shown for one page.
func renderPage(hp *heap.HeapPage, summary heap.PageSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", sectionStyle.Render("Header"))
	fmt.Fprintf(&sb, "slots %d  used %d  free %d\n", summary.NumSlots, summary.UsedSlots, summary.NumSlots-summary.UsedSlots)
	fmt.Fprintf(&sb, "blake3 %s\n\n", summary.Digest)
	fmt.Fprintf(&sb, "%s\n", sectionStyle.Render("Occupancy"))
	sb.WriteString(renderBitmap(hp))
	fmt.Fprintf(&sb, "\n%s\n", sectionStyle.Render("Tuples"))
	sb.WriteString(renderTuples(hp))
	return sb.String()
}
