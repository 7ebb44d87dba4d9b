package tui

import (
	"fmt"
	"strings"

	"github.com/matheus3301/pingme/internal/chat"
)

// Command represents a parsed ":" command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	name, args, _ := strings.Cut(input, " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

// ResolvePeer finds the peer meant by arg: an exact uid, then a display
// name or email ignoring case, then a unique name prefix.
func ResolvePeer(peers []chat.UserProfile, arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("open: missing peer")
	}
	for _, p := range peers {
		if p.UID == arg {
			return p.UID, nil
		}
	}
	for _, p := range peers {
		if strings.EqualFold(p.Name(), arg) || strings.EqualFold(p.Email, arg) {
			return p.UID, nil
		}
	}
	var match []string
	lower := strings.ToLower(arg)
	for _, p := range peers {
		if strings.HasPrefix(strings.ToLower(p.Name()), lower) {
			match = append(match, p.UID)
		}
	}
	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return "", fmt.Errorf("open: no peer matches %q", arg)
	default:
		return "", fmt.Errorf("open: %q matches %d peers", arg, len(match))
	}
}
