package commands_test

import (
	"strings"
	"testing"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/commands"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

func loadCatalog(t *testing.T) *locale.Catalog {
	t.Helper()
	c, err := locale.Load()
	if err != nil {
		t.Fatalf("locale.Load: %v", err)
	}
	return c
}

func TestFormatReport_FullLayout(t *testing.T) {
	sum := &store.Summary{
		DistinctUsers: 3,
		TotalEvents:   42,
		Messages:      30,
		Commands:      12,
		AvgLatencyMS:  187.4,
		TopUsers: []store.UserActivity{
			{FirstName: "Bea", Username: "bea", Events: 20},
			{FirstName: "Alex", Username: "", Events: 15},
		},
		CommandUsage: []store.CommandCount{
			{Command: "help", Count: 7},
			{Command: "start", Count: 5},
		},
		Languages: []store.LanguageCount{
			{Language: "zh", Users: 2},
			{Language: "en", Users: 1},
		},
	}

	got := commands.FormatReport(sum, loadCatalog(t))
	want := "📊 **Bot Analytics (Last 24 Hours)**\n" +
		"\n" +
		"**📈 Overall Statistics:**\n" +
		"• Total Users: 3\n" +
		"• Total Actions: 42\n" +
		"• Messages Sent: 30\n" +
		"• Commands Used: 12\n" +
		"• Avg Response Time: 187ms\n" +
		"\n" +
		"**👥 Most Active Users:**\n" +
		"• Bea (@bea): 20 actions\n" +
		"• Alex (No username): 15 actions\n" +
		"\n" +
		"**📱 Command Usage:**\n" +
		"• /help: 7 times\n" +
		"• /start: 5 times\n" +
		"\n" +
		"**🌍 Language Preferences:**\n" +
		"• Chinese: 2 users\n" +
		"• English: 1 users\n"
	if got != want {
		t.Errorf("report layout mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatReport_EmptySummary(t *testing.T) {
	got := commands.FormatReport(&store.Summary{}, loadCatalog(t))

	for _, header := range []string{
		"**📈 Overall Statistics:**",
		"**👥 Most Active Users:**",
		"**📱 Command Usage:**",
		"**🌍 Language Preferences:**",
	} {
		if !strings.Contains(got, header) {
			t.Errorf("report should always carry section header %q", header)
		}
	}
	if !strings.Contains(got, "• Avg Response Time: 0ms\n") {
		t.Errorf("empty summary should report 0ms, got:\n%s", got)
	}
}

func TestFormatReport_Fallbacks(t *testing.T) {
	sum := &store.Summary{
		TopUsers:     []store.UserActivity{{FirstName: "", Username: "", Events: 2}},
		CommandUsage: []store.CommandCount{{Command: "", Count: 1}},
		Languages:    []store.LanguageCount{{Language: "fr", Users: 1}},
	}

	got := commands.FormatReport(sum, loadCatalog(t))
	if !strings.Contains(got, "• Unknown (No username): 2 actions\n") {
		t.Errorf("missing-name fallbacks not applied:\n%s", got)
	}
	if !strings.Contains(got, "• /Unknown: 1 times\n") {
		t.Errorf("missing-command fallback not applied:\n%s", got)
	}
	if !strings.Contains(got, "• English: 1 users\n") {
		t.Errorf("unknown language should render as English:\n%s", got)
	}
}
