// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signal

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// LexiconScorer is an offline valence-lexicon scorer in the style of VADER:
// word valences on a [-4, 4] scale are summed with negation and intensifier
// handling, then normalised into [-1, 1].
type LexiconScorer struct {
	lexicon map[string]float64
}

// NewLexiconScorer returns a scorer using the built-in lexicon.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{lexicon: defaultLexicon}
}

const (
	negationScalar = -0.74
	boosterStep    = 0.293
	normAlpha      = 15.0
	negationWindow = 3
)

// Polarity never fails.
func (s *LexiconScorer) Polarity(_ context.Context, text string) (float64, error) {
	return s.score(text), nil
}

func (s *LexiconScorer) score(text string) float64 {
	words := tokenize(text)
	var sum float64
	for i, w := range words {
		v, ok := s.lexicon[w]
		if !ok {
			continue
		}
		if i > 0 {
			if step, ok := boosters[words[i-1]]; ok {
				if v > 0 {
					v += step
				} else {
					v -= step
				}
			}
		}
		for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
			if negations[words[j]] {
				v *= negationScalar
				break
			}
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+normAlpha)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "nothing": true,
	"isn't": true, "aren't": true, "wasn't": true, "weren't": true,
	"don't": true, "doesn't": true, "didn't": true, "can't": true,
	"cannot": true, "won't": true, "without": true, "hardly": true,
}

var boosters = map[string]float64{
	"very": boosterStep, "really": boosterStep, "extremely": boosterStep,
	"highly": boosterStep, "incredibly": boosterStep, "most": boosterStep,
	"particularly": boosterStep, "exceptionally": boosterStep,
	"slightly": -boosterStep, "somewhat": -boosterStep, "fairly": -boosterStep,
	"barely": -boosterStep, "marginally": -boosterStep,
}

var defaultLexicon = map[string]float64{
	// positive
	"great": 3.1, "excellent": 2.7, "best": 3.2, "good": 1.9, "better": 1.9,
	"love": 3.2, "loved": 2.9, "amazing": 2.8, "awesome": 3.1, "outstanding": 3.0,
	"fantastic": 2.6, "wonderful": 2.7, "superb": 3.1, "perfect": 2.7,
	"recommended": 1.5, "recommend": 1.5, "popular": 1.8, "reliable": 1.8,
	"trusted": 2.1, "trustworthy": 2.3, "easy": 1.9, "friendly": 2.2,
	"user-friendly": 2.2, "intuitive": 1.8, "convenient": 1.6, "helpful": 1.8,
	"strong": 1.7, "secure": 1.4, "safe": 1.9, "leading": 1.5, "favorite": 2.0,
	"favourite": 2.0, "innovative": 1.9, "affordable": 1.5, "efficient": 1.6,
	"excellence": 3.1, "impressive": 2.3, "benefit": 1.6, "benefits": 1.6,
	"advantage": 1.0, "advantages": 1.0, "competitive": 0.7, "nice": 1.8,
	"happy": 2.7, "satisfied": 1.8, "solid": 1.2, "top": 0.8, "win": 2.8,
	"wins": 2.7, "robust": 1.5, "smooth": 1.4, "low-cost": 1.0,
	// negative
	"bad": -2.5, "poor": -2.1, "terrible": -2.1, "worst": -3.1, "awful": -2.0,
	"horrible": -2.5, "hate": -2.7, "problem": -1.7, "problems": -1.7,
	"issue": -1.0, "issues": -1.0, "complaint": -1.5, "complaints": -1.7,
	"expensive": -0.9, "slow": -1.1, "difficult": -1.5, "complicated": -1.2,
	"confusing": -1.3, "risky": -1.4, "risk": -1.1, "unreliable": -1.9,
	"disappointing": -2.2, "disappointed": -1.9, "fail": -2.5, "fails": -2.3,
	"failed": -2.3, "failure": -2.3, "weak": -1.9, "limited": -0.8, "lacks": -1.1,
	"lacking": -1.3, "outdated": -1.0, "scam": -2.9, "fraud": -2.8,
	"worse": -2.1, "unhappy": -1.8, "frustrating": -2.2, "annoying": -1.7,
	"criticized": -1.5, "criticised": -1.5, "downside": -1.0, "drawback": -1.0,
	"drawbacks": -1.0, "hidden": -0.4, "insecure": -1.8, "unsafe": -1.9,
}
