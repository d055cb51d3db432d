// pkg/profile/label.go
package profile

// Label is the closed set of behavioral classifications a session can carry.
type Label string

const (
	LabelBruteforceBot    Label = "bruteforce_bot"
	LabelAutomatedScanner Label = "automated_scanner"
	LabelHumanInteractive Label = "human_interactive"
	LabelUnknown          Label = "unknown"
)

// ParseLabel maps a stored string onto the closed label set. Anything outside
// the set degrades to LabelUnknown rather than leaking free-form strings into
// the deception policy tables.
func ParseLabel(s string) Label {
	switch Label(s) {
	case LabelBruteforceBot, LabelAutomatedScanner, LabelHumanInteractive:
		return Label(s)
	default:
		return LabelUnknown
	}
}
