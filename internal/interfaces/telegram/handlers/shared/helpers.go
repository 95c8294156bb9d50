package shared

import (
	"fmt"
	"strings"

	"caesar-in-a-year/internal/application/usecases"
	"caesar-in-a-year/internal/domain/learning"
)

// FormatStatsText formats progress and mastery into a readable message
func FormatStatsText(view *usecases.ProgressView, mastery learning.MasterySummary) string {
	p := view.Progress
	return fmt.Sprintf(
		"📊 *Your progress*\n\n"+
			"🔥 Streak: %d days (best %d)\n"+
			"📅 Days active: %d\n"+
			"⭐ XP: %d\n"+
			"⏰ Cards due now: %d\n\n"+
			"📜 Difficulty ceiling: %d/100\n"+
			"📖 Sentences studied: %d of %d\n"+
			"🏛 Mastered: %d\n\n"+
			"Novice %d · Intermediate %d · Veteran %d · Master %d",
		p.Streak(), p.LongestStreak(), p.DaysActive(), p.XP(), view.DueCards,
		mastery.Ceiling, mastery.Studied, mastery.TotalContent, mastery.Mastered,
		mastery.Tiers[learning.TierNovice], mastery.Tiers[learning.TierIntermediate],
		mastery.Tiers[learning.TierVeteran], mastery.Tiers[learning.TierMaster])
}

// GetHelpText returns the standard help text
func GetHelpText() string {
	return `🏛 *Caesar in a Year*

This chat sends you a short reminder when cards are waiting for review. Sessions themselves run in the web app.

*Commands:*
/start <learner id> - Link this chat to your account
/stats - Show your progress and mastery
/stop - Stop daily reminders
/help - Show this help

Reminders are never sent during quiet hours, and at most once a day.`
}

// EscapeMarkdown escapes legacy Markdown control characters
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
