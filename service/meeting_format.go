package service

import (
	"sort"
	"strings"

	"github.com/nilotpaul/meetsync/types"
)

func meetingTitle(m *types.MeetingArtifact, override string) string {
	if len(override) != 0 {
		return override
	}
	if m == nil || len(strings.TrimSpace(m.Title)) == 0 {
		return "Meeting notes"
	}
	return m.Title
}

// actionItems returns the artifact's action items ordered by their id.
func actionItems(m *types.MeetingArtifact) []types.ActionItem {
	if m == nil || len(m.ActionItems) == 0 {
		return nil
	}

	ids := make([]string, 0, len(m.ActionItems))
	for id := range m.ActionItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]types.ActionItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, m.ActionItems[id])
	}
	return items
}

func actionItemLine(it types.ActionItem) string {
	line := it.Text
	if len(it.Assignee) != 0 {
		line += " (" + it.Assignee + ")"
	}
	return line
}

// meetingSummary renders notes and action items as plain text.
func meetingSummary(m *types.MeetingArtifact) string {
	if m == nil {
		return ""
	}

	var b strings.Builder
	if notes := strings.TrimSpace(m.Notes); len(notes) != 0 {
		b.WriteString(notes)
	}

	items := actionItems(m)
	if len(items) != 0 {
		if b.Len() != 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Action items:")
		for _, it := range items {
			mark := "[ ]"
			if it.Completed {
				mark = "[x]"
			}
			b.WriteString("\n" + mark + " " + actionItemLine(it))
		}
	}

	return b.String()
}

// chunk splits s into pieces of at most n runes.
func chunk(s string, n int) []string {
	r := []rune(s)
	if len(r) == 0 {
		return nil
	}

	var out []string
	for len(r) > n {
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return append(out, string(r))
}
