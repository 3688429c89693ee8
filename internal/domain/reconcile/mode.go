package reconcile

import "fmt"

// Mode controls how strictly proposals are checked against the user's words.
type Mode string

const (
	// ModeStrict requires the citation to be a literal fragment of the user message.
	ModeStrict Mode = "strict"
	// ModePermissive requires only a non-empty citation.
	ModePermissive Mode = "permissive"
)

// ParseMode validates a mode name. Empty means permissive.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePermissive:
		return ModePermissive, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown reconciliation mode %q", s)
	}
}
