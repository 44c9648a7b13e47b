package reply

import "strings"

var crisisPhrases = []string{
	// en
	"suicide", "suicidal", "kill myself", "end my life", "want to die", "hurt myself",
	"self harm", "self-harm", "cut myself", "overdose", "hang myself",
	// es
	"suicidio", "matarme", "quiero morir", "hacerme daño",
	// de
	"selbstmord", "umbringen", "sterben will", "mir wehtun",
	// fr
	"me tuer", "envie de mourir", "me faire du mal",
	// it
	"uccidermi", "voglio morire", "farmi del male",
	// pt
	"me matar", "quero morrer",
}

// IsCrisis reports whether text mentions self-harm or suicide.
func IsCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range crisisPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
