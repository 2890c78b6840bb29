package steps

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	types "github.com/yungbote/storyforge-backend/internal/domain"
	"github.com/yungbote/storyforge-backend/internal/modules/coursegen/roster"
)

// LanguageName renders a BCP 47 code in English, falling back to the code itself.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

func grammarLines(catalog *roster.GrammarCatalog) string {
	var b strings.Builder
	for _, r := range catalog.All() {
		fmt.Fprintf(&b, "- %s: %s\n", r.Slug, r.Title)
	}
	return strings.TrimSpace(b.String())
}

func rosterText(r *roster.Roster) string {
	var b strings.Builder
	for _, c := range r.All() {
		fmt.Fprintf(&b, "- %s (%s, %s, %s): %s\n", c.Name, c.Role, c.Gender, c.AgeRange, strings.Join(c.PersonalityTraits, ", "))
	}
	return strings.TrimSpace(b.String())
}

// profileText is a full roster entry, including the character's development log.
func profileText(c *types.Character, notes []*types.CharacterDevelopmentNote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n  role: %s\n  gender: %s\n  age: %s\n", c.Name, c.Role, c.Gender, c.AgeRange)
	if len(c.PersonalityTraits) > 0 {
		fmt.Fprintf(&b, "  traits: %s\n", strings.Join(c.PersonalityTraits, ", "))
	}
	if c.Background != "" {
		fmt.Fprintf(&b, "  background: %s\n", c.Background)
	}
	if c.AppearanceDescription != "" {
		fmt.Fprintf(&b, "  appearance: %s\n", c.AppearanceDescription)
	}
	if len(notes) > 0 {
		b.WriteString("  development so far:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "    [%s] %s\n", n.EpisodeRef, n.Note)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func notesByCharacter(notes []*types.CharacterDevelopmentNote) map[uuid.UUID][]*types.CharacterDevelopmentNote {
	out := map[uuid.UUID][]*types.CharacterDevelopmentNote{}
	for _, n := range notes {
		out[n.CharacterID] = append(out[n.CharacterID], n)
	}
	return out
}

func bullets(items []string) string {
	var b strings.Builder
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
