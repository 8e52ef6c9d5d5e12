package tui

import (
	"fmt"
	"strings"
)

// Command names accepted by the ":" prompt.
const (
	CmdOpen   = "open"
	CmdReload = "reload"
	CmdHelp   = "help"
	CmdQuit   = "quit"
)

var commandAliases = map[string]string{
	"o":       CmdOpen,
	"chat":    CmdOpen,
	"r":       CmdReload,
	"refresh": CmdReload,
	"h":       CmdHelp,
	"q":       CmdQuit,
	"q!":      CmdQuit,
	"exit":    CmdQuit,
}

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':'). Aliases
// resolve to their canonical name; unknown names and a missing contact id
// for open are errors.
func ParseCommand(input string) (Command, error) {
	input = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	if input == "" {
		return Command{}, fmt.Errorf("empty command")
	}
	name, args, _ := strings.Cut(input, " ")
	cmd := Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
	if canonical, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = canonical
	}
	switch cmd.Name {
	case CmdOpen:
		if cmd.Args == "" {
			return Command{}, fmt.Errorf("usage: open <contact-id>")
		}
	case CmdReload, CmdHelp, CmdQuit:
	default:
		return Command{}, fmt.Errorf("unknown command %q", name)
	}
	return cmd, nil
}
