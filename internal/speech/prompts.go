package speech

import (
	"fmt"
	"strings"

	"github.com/mfeldt/ecopolis/internal/game"
	"github.com/mfeldt/ecopolis/internal/promises"
)

const extractionSystemPrompt = `You are an AI analyst for the game Ecopolis. Your job is to analyze the player's speech and extract promises they make (explicit or implicit) and detect contradictions between their words and their past actions or active promises.

## Rules
- Always respond with valid JSON only. No markdown, no code fences, no extra text.
- Extract both explicit promises ("I promise to...", "I will...") and implicit promises ("The forest stays", "We protect nature") from the speech.
- Compare the current speech and recent tile actions against ALL active promises to detect contradictions.
- Be conservative with contradiction severity:
  - "low": minor inconsistency, could be interpreted differently
  - "medium": clear contradiction but could have strategic justification
  - "high": blatant broken promise with no reasonable explanation
- For promise type, use "explicit" or "implicit".
- For targetCitizen, use the citizen's exact name if the promise is directed at a specific citizen, otherwise null.
- For deadlineTurn, extract only if the player mentions a specific turn deadline, otherwise null.

## Response Format
Respond with exactly this JSON structure:
{
  "promises": [
    {"text": "promise description", "type": "explicit|implicit", "targetCitizen": "name or null", "deadlineTurn": null}
  ],
  "contradictions": [
    {"description": "what the contradiction is", "speechQuote": "relevant quote from speech", "contradictingAction": "action description", "severity": "low|medium|high"}
  ]
}

If there are no promises, return an empty array for "promises".
If there are no contradictions, return an empty array for "contradictions".`

// buildExtractionUserPrompt assembles the full game context the analyst
// needs: meters, roster, outstanding promises, every earlier speech, and the
// tile map, followed by the speech under analysis.
func buildExtractionUserPrompt(g *game.Game, speechText string) string {
	var b strings.Builder

	b.WriteString("## Game Context\n")
	fmt.Fprintf(&b, "Current Turn: %d\n", g.CurrentTurn)
	fmt.Fprintf(&b, "Resources: Ecology=%d, Economy=%d, Research=%d\n",
		g.Resources.Ecology, g.Resources.Economy, g.Resources.Research)

	if len(g.Citizens) > 0 {
		b.WriteString("\n## Citizens\n")
		for _, c := range g.Citizens {
			fmt.Fprintf(&b, "- %s (%s), approval: %d%%\n", c.Name, c.Profession, c.Approval)
		}
	}

	if active := g.ActivePromises(); len(active) > 0 {
		b.WriteString("\n## Active Promises\n")
		for _, p := range active {
			fmt.Fprintf(&b, "- Turn %d: %q", p.TurnMade, p.Text)
			if p.TargetCitizen != "" {
				fmt.Fprintf(&b, " (to %s)", p.TargetCitizen)
			}
			if p.Deadline != nil {
				fmt.Fprintf(&b, " [deadline: turn %d]", *p.Deadline)
			}
			b.WriteString("\n")
		}
	}

	wrotePrevHeader := false
	for _, t := range g.Turns {
		if t.Number >= g.CurrentTurn || strings.TrimSpace(t.SpeechText) == "" {
			continue
		}
		if !wrotePrevHeader {
			b.WriteString("\n## Previous Speeches\n")
			wrotePrevHeader = true
		}
		fmt.Fprintf(&b, "Turn %d: %q\n", t.Number, t.SpeechText)
	}

	if len(g.Tiles) > 0 {
		b.WriteString("\n## Current Tile Map\n")
		parts := make([]string, 0, len(g.Tiles))
		for _, t := range g.Tiles {
			parts = append(parts, fmt.Sprintf("(%d,%d): %s", t.X, t.Y, t.Type))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n## Current Speech (Turn %d)\n%s\n", g.CurrentTurn, speechText)

	return b.String()
}

// buildReactionSystemPrompt assembles the reaction engine's instructions:
// game context, citizen profiles, this speech's extraction results, the full
// promise history, previous speech summaries, the per-citizen personality
// guidelines, the reaction rules, and the output schema.
func buildReactionSystemPrompt(g *game.Game, extraction extractionResult) string {
	var b strings.Builder

	b.WriteString(`You are the reaction engine for a political simulation game called Ecopolis.
The player is the mayor of a small town making speeches to their citizens.
You must generate in-character reactions for EACH citizen listed below.

`)

	b.WriteString("=== GAME CONTEXT ===\n")
	fmt.Fprintf(&b, "Current turn: %d of %d\n", g.CurrentTurn, game.MaxTurns)
	b.WriteString("Resources:\n")
	fmt.Fprintf(&b, "  - Ecology: %d/100\n", g.Resources.Ecology)
	fmt.Fprintf(&b, "  - Economy: %d/100\n", g.Resources.Economy)
	fmt.Fprintf(&b, "  - Research: %d/100\n", g.Resources.Research)
	b.WriteString("\n")

	b.WriteString("=== CITIZENS (generate a reaction for EACH) ===\n")
	for _, c := range g.Citizens {
		fmt.Fprintf(&b, "- %s (%s, age %d, type: %s, current approval: %d/100)\n",
			c.Name, c.Profession, c.Age, strings.ToUpper(string(c.Kind)), c.Approval)
		fmt.Fprintf(&b, "  Personality: %s\n", c.Personality)
		if c.Kind == game.CitizenDynamic && c.RemainingTurns != nil {
			fmt.Fprintf(&b, "  Remaining turns in town: %d\n", *c.RemainingTurns)
		}
		b.WriteString("\n")
	}

	b.WriteString("=== EXTRACTED PROMISES FROM THIS SPEECH ===\n")
	if len(extraction.Promises) == 0 {
		b.WriteString("No promises detected in this speech.\n")
	} else {
		for _, p := range extraction.Promises {
			fmt.Fprintf(&b, "- %q", p.Text)
			if p.Type != "" {
				fmt.Fprintf(&b, " (type: %s)", p.Type)
			}
			if p.TargetCitizen != "" {
				fmt.Fprintf(&b, " [targeted at: %s]", p.TargetCitizen)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n=== DETECTED CONTRADICTIONS ===\n")
	if len(extraction.Contradictions) == 0 {
		b.WriteString("No contradictions detected.\n")
	} else {
		for _, c := range extraction.Contradictions {
			fmt.Fprintf(&b, "- %s\n", c.Description)
			fmt.Fprintf(&b, "  Speech quote: %q\n", c.SpeechQuote)
			fmt.Fprintf(&b, "  Contradicting action: %s\n", c.ContradictingAction)
			fmt.Fprintf(&b, "  Severity: %s\n", c.Severity)
		}
	}
	b.WriteString("\n")

	appendPromiseHistory(&b, g)
	appendSpeechHistory(&b, g)

	b.WriteString(`=== CITIZEN PERSONALITY GUIDELINES ===

**Karl** (Factory Worker, 48): Conservative, family-oriented. He responds positively to:
factory building, economic growth, job creation, stability. He responds negatively to:
factory closures, heavy research spending, radical change. He solidarizes with workers
who lose their jobs. He speaks plainly and worries about his family.

**Mia** (Climate Activist, 24): Idealistic, impatient, passionate. She responds positively to:
forest planting, demolishing fossil industry, renewable energy, fast climate action.
She responds negatively to: new factories, deforestation, slow/incremental action.
She uses emotional language and references generational justice.

**Sarah** (Opposition Politician, 42): Strategic, opportunistic, sharp-tongued. She is
ALMOST ALWAYS negative. She QUOTES the player VERBATIM when promises are broken or
contradictions exist. She exploits citizen suffering and broken promises for political gain.
She becomes quieter (smaller negative delta or even neutral) ONLY when the mayor performs
exceptionally well with no contradictions. Her dialogue should be sharp and political.

**Dynamic citizens**: React based on their personality field and their specific situation.
If they just arrived, they react to the circumstances that brought them to the town hall.
If two dynamic citizens are present from the same event (e.g., Oleg + Lena from a
replace_with_solar action), they should reference each other in their dialogue.

=== REACTION RULES ===

1. Generate EXACTLY one reaction per citizen listed above.
2. Each dialogue must be 2-4 sentences maximum.
3. approvalDelta must be between -15 and +15 (integer).
4. Sarah quotes the player verbatim when promises are broken or contradictions are detected.
5. Dynamic citizens who just spawned should react to their personal situation.
6. If two dynamic citizens are present from the same event, they should reference each other.
7. Reference SPECIFIC parts of the player's speech in reactions.
8. Keep dialogue authentic, emotional, and in-character.
9. Valid tones: angry, hopeful, sarcastic, desperate, grateful, suspicious, neutral
10. High approval citizens are more forgiving; low approval citizens are more critical.

`)

	names := make([]string, 0, len(g.Citizens))
	for _, c := range g.Citizens {
		names = append(names, c.Name)
	}
	fmt.Fprintf(&b, `=== OUTPUT FORMAT ===

Respond with ONLY valid JSON. No markdown, no code fences, no explanation.
The JSON must match this exact structure:

{
  "reactions": [
    {"citizenName": "Name", "dialogue": "...", "tone": "suspicious", "approvalDelta": -3}
  ]
}

You MUST include a reaction for each of these citizens: %s

Valid tones: angry, hopeful, sarcastic, desperate, grateful, suspicious, neutral
approvalDelta range: -15 to +15
`, strings.Join(names, ", "))

	return b.String()
}

func appendPromiseHistory(b *strings.Builder, g *game.Game) {
	if len(g.Promises) == 0 {
		return
	}

	var broken, active []*game.Promise
	kept := 0
	for _, p := range g.Promises {
		switch p.Status {
		case game.PromiseBroken:
			broken = append(broken, p)
		case game.PromiseActive:
			active = append(active, p)
		case game.PromiseKept:
			kept++
		}
	}

	b.WriteString("=== PROMISE HISTORY ===\n")
	if len(broken) > 0 {
		b.WriteString("BROKEN promises (important for Sarah!):\n")
		for _, p := range broken {
			fmt.Fprintf(b, "  - %q (made turn %d)\n", p.Text, p.TurnMade)
		}
	}
	if len(active) > 0 {
		b.WriteString("Active promises (still pending):\n")
		for _, p := range active {
			fmt.Fprintf(b, "  - %q (made turn %d", p.Text, p.TurnMade)
			if p.Deadline != nil {
				fmt.Fprintf(b, ", deadline: turn %d", *p.Deadline)
			}
			b.WriteString(")\n")
		}
	}
	if kept > 0 {
		fmt.Fprintf(b, "Kept promises: %d total\n", kept)
	}
	b.WriteString("\n")
}

// appendSpeechHistory summarizes earlier speeches, truncated to 200 runes so
// the prompt stays bounded over a full game.
func appendSpeechHistory(b *strings.Builder, g *game.Game) {
	wroteHeader := false
	for _, t := range g.Turns {
		if t.Number >= g.CurrentTurn || strings.TrimSpace(t.SpeechText) == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("=== PREVIOUS SPEECHES (summary) ===\n")
			wroteHeader = true
		}
		summary := t.SpeechText
		if len(summary) > 200 {
			summary = summary[:200] + "..."
		}
		fmt.Fprintf(b, "Turn %d: %q\n", t.Number, summary)
	}
	if wroteHeader {
		b.WriteString("\n")
	}
}

// reactionUserPrompt wraps the raw speech for the reaction call.
func reactionUserPrompt(speechText string) string {
	return "The mayor's speech:\n\n\"" + speechText + "\""
}

// extractionResult is the parsed payload of the analysis call.
type extractionResult struct {
	Promises       []promises.Extracted     `json:"promises"`
	Contradictions []promises.Contradiction `json:"contradictions"`
}
