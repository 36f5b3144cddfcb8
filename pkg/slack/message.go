package slack

import (
	"fmt"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

// BuildResultMessage creates Block Kit blocks for a submission result
// notification: a single section carrying the already-rendered message text,
// truncated to Slack's block text limit.
func BuildResultMessage(submissionID, message string) []goslack.Block {
	text := fmt.Sprintf("*Submission %s*\n%s", submissionID, truncateForSlack(message))
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

func truncateForSlack(text string) string {
	if utf8.RuneCountInString(text) <= maxBlockTextLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated)_"
}
