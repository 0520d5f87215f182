package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrSnakeDoc/linkwrap/internal/affiliate"
)

const (
	// maxContentLen is Discord's message content limit.
	maxContentLen = 2000
	// buttonsPerRow and maxRows are Discord's component limits.
	buttonsPerRow = 5
	maxRows       = 5

	genericErrorText = "❌ An error occurred while processing your links."
)

var customEmoji = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]+):(\d+)>$`)

// componentEmoji converts "<:name:id>", "<a:name:id>" or a unicode emoji.
func componentEmoji(s string) *discordgo.ComponentEmoji {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if m := customEmoji.FindStringSubmatch(s); m != nil {
		return &discordgo.ComponentEmoji{Name: m[2], ID: m[3], Animated: m[1] == "a"}
	}
	return &discordgo.ComponentEmoji{Name: s}
}

// buttonRows lays buttons out 5 per row, keeping at most 5 rows.
func buttonRows(buttons []affiliate.Button) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for start := 0; start < len(buttons) && len(rows) < maxRows; start += buttonsPerRow {
		end := min(start+buttonsPerRow, len(buttons))
		row := discordgo.ActionsRow{}
		for _, b := range buttons[start:end] {
			row.Components = append(row.Components, discordgo.Button{
				Label: truncate(b.Label, 80),
				Style: discordgo.LinkButton,
				URL:   b.URL,
				Emoji: componentEmoji(b.Emoji),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// conversionContent is the greeting followed by as many whole description
// blocks as fit in one message. It also returns how many blocks were written.
func conversionContent(mention string, descriptions []string) (string, int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s, your links were converted! Happy shopping!", mention))
	shown := 0
	for _, d := range descriptions {
		block := "\n\n" + strings.TrimRight(d, "\n")
		if sb.Len()+len(block) > maxContentLen {
			break
		}
		sb.WriteString(block)
		shown++
	}
	return truncate(sb.String(), maxContentLen), shown
}

// conversionReply renders only the links whose buttons all fit, so the text
// and the button rows always describe the same links. It returns the number
// of links shown.
func conversionReply(m *discordgo.Message, descriptions []string, buttons []affiliate.Button) (*discordgo.MessageSend, int) {
	perLink := 0
	if len(descriptions) > 0 {
		perLink = len(buttons) / len(descriptions)
	}
	limit := len(descriptions)
	if perLink > 0 {
		limit = min(limit, maxRows*buttonsPerRow/perLink)
	}

	content, shown := conversionContent(m.Author.Mention(), descriptions[:limit])
	if perLink > 0 {
		buttons = buttons[:min(len(buttons), shown*perLink)]
	}

	return &discordgo.MessageSend{
		Content:    content,
		Components: buttonRows(buttons),
		Reference:  m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users:       []string{m.Author.ID},
			RepliedUser: true,
		},
	}, shown
}

func unsupportedReply(m *discordgo.Message, marketplaces, agentList []string) *discordgo.MessageSend {
	content := fmt.Sprintf("🚫 Unsupported link. Supported marketplaces: %s\nSupported agents: %s",
		strings.Join(marketplaces, ", "), strings.Join(agentList, ", "))
	return &discordgo.MessageSend{
		Content:         truncate(content, maxContentLen),
		Reference:       m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
	}
}

func warningReply(m *discordgo.Message, timeoutText string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:   fmt.Sprintf("⚠️ %s please stop spamming links! (%s timeout)", m.Author.Mention(), timeoutText),
		Reference: m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{m.Author.ID},
		},
	}
}

func errorReply(m *discordgo.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         genericErrorText,
		Reference:       m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
	}
}
