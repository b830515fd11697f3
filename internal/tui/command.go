package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

var aliases = map[string]string{
	"o":     "orders",
	"n":     "notifications",
	"notes": "notifications",
	"h":     "help",
	"q":     "quit",
	"exit":  "quit",
}

// Commands lists the names the prompt completes.
var Commands = []string{"orders", "notifications", "chat", "handoff", "help", "logout", "quit"}

// ParseCommand parses a command string (without the leading ':').
// Aliases resolve to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if full, ok := aliases[cmd.Name]; ok {
		cmd.Name = full
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}
