package repository

import (
	"fmt"
	"strings"
)

func promptClassifyHeadlines(symbol string, headlines []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(
		"You are a financial news analyst. Classify the overall sentiment of the following recent headlines for the US-listed stock %s.\n\n",
		symbol,
	))
	sb.WriteString("### Headlines:\n")
	for i, h := range headlines {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, h))
	}
	sb.WriteString(`
### Rules:
- Judge only the impact on the stock price over the next few trading days.
- Ignore headlines that are not about the company.
- "sentiment" must be exactly one of POSITIVE, NEGATIVE, NEUTRAL.
- "score" is a number between -1 (very negative) and 1 (very positive).

### Output:
Respond with JSON only, no markdown:
{"sentiment": "NEUTRAL", "score": 0}
`)
	return sb.String()
}
