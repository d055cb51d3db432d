// pkg/profile/classifier.go
package profile

// Classify assigns a behavioral label using ordered first-match rules.
// Rule order is authoritative: a trace that satisfies both the bruteforce and
// scanner rules is a bruteforce_bot.
func Classify(f Features) Label {
	switch {
	case f.AuthAttempts > 5 && f.CommandCount == 0:
		return LabelBruteforceBot
	case f.CommandRate > 3:
		return LabelAutomatedScanner
	case f.UniqueCommands > 5:
		return LabelHumanInteractive
	default:
		return LabelUnknown
	}
}
