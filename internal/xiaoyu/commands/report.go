package commands

import (
	"fmt"
	"strings"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

// FormatReport renders an analytics summary as a Markdown reply: overall
// totals, the five most active users, per-command usage and the language
// split.  Section headers are always present, even with no rows beneath
// them.
func FormatReport(sum *store.Summary, locales *locale.Catalog) string {
	var b strings.Builder

	b.WriteString("📊 **Bot Analytics (Last 24 Hours)**\n\n")
	b.WriteString("**📈 Overall Statistics:**\n")
	fmt.Fprintf(&b, "• Total Users: %d\n", sum.DistinctUsers)
	fmt.Fprintf(&b, "• Total Actions: %d\n", sum.TotalEvents)
	fmt.Fprintf(&b, "• Messages Sent: %d\n", sum.Messages)
	fmt.Fprintf(&b, "• Commands Used: %d\n", sum.Commands)
	fmt.Fprintf(&b, "• Avg Response Time: %.0fms\n", sum.AvgLatencyMS)

	b.WriteString("\n**👥 Most Active Users:**\n")
	for _, u := range sum.TopUsers {
		name := u.FirstName
		if name == "" {
			name = "Unknown"
		}
		username := "No username"
		if u.Username != "" {
			username = "@" + u.Username
		}
		fmt.Fprintf(&b, "• %s (%s): %d actions\n", name, username, u.Events)
	}

	b.WriteString("\n**📱 Command Usage:**\n")
	for _, c := range sum.CommandUsage {
		command := c.Command
		if command == "" {
			command = "Unknown"
		}
		fmt.Fprintf(&b, "• /%s: %d times\n", command, c.Count)
	}

	b.WriteString("\n**🌍 Language Preferences:**\n")
	for _, l := range sum.Languages {
		name := "English"
		if m, ok := locales.Lookup(l.Language); ok {
			name = m.Name
		}
		fmt.Fprintf(&b, "• %s: %d users\n", name, l.Users)
	}

	return b.String()
}
