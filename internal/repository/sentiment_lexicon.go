package repository

import (
	"context"
	"golang-autotrade/internal/dto"
	"strings"
	"unicode"
)

const lexiconThreshold = 0.2

var positiveWords = map[string]struct{}{
	"beat": {}, "beats": {}, "surge": {}, "surges": {}, "soar": {}, "soars": {}, "jump": {}, "jumps": {},
	"rally": {}, "rallies": {}, "gain": {}, "gains": {}, "record": {}, "upgrade": {}, "upgraded": {},
	"outperform": {}, "strong": {}, "growth": {}, "profit": {}, "bullish": {}, "raises": {}, "raised": {},
	"buyback": {}, "approval": {}, "approved": {}, "wins": {}, "expands": {}, "tops": {},
}

var negativeWords = map[string]struct{}{
	"miss": {}, "misses": {}, "plunge": {}, "plunges": {}, "fall": {}, "falls": {}, "drop": {}, "drops": {},
	"slump": {}, "slumps": {}, "downgrade": {}, "downgraded": {}, "weak": {}, "loss": {}, "losses": {},
	"bearish": {}, "cuts": {}, "cut": {}, "lawsuit": {}, "probe": {}, "recall": {}, "layoffs": {},
	"warns": {}, "warning": {}, "fraud": {}, "sinks": {}, "tumbles": {}, "underperform": {},
}

// lexiconClassifier scores headlines by counting polarity words. It needs no
// network and backs up the LLM classifier.
type lexiconClassifier struct{}

func NewLexiconClassifier() HeadlineClassifier {
	return lexiconClassifier{}
}

func (lexiconClassifier) ClassifyHeadlines(_ context.Context, _ string, headlines []string) (*dto.NewsSentiment, error) {
	pos, neg := 0, 0
	for _, h := range headlines {
		for _, word := range strings.FieldsFunc(strings.ToLower(h), func(r rune) bool {
			return !unicode.IsLetter(r)
		}) {
			if _, ok := positiveWords[word]; ok {
				pos++
			}
			if _, ok := negativeWords[word]; ok {
				neg++
			}
		}
	}

	score := 0.0
	if pos+neg > 0 {
		score = float64(pos-neg) / float64(pos+neg)
	}

	sentiment := dto.SentimentNeutral
	switch {
	case score > lexiconThreshold:
		sentiment = dto.SentimentPositive
	case score < -lexiconThreshold:
		sentiment = dto.SentimentNegative
	}

	return &dto.NewsSentiment{
		Sentiment:     sentiment,
		Score:         score,
		HeadlineCount: len(headlines),
		Headlines:     headlines,
		Source:        "lexicon",
	}, nil
}
