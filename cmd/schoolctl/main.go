package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/schoolchat/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonOutput := flag.Bool("json", false, "output in JSON format")
	timeout := flag.Duration("timeout", 30*time.Second, "overall command timeout")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch args[0] {
	case "whoami":
		err = cmdWhoami(profileName, *jsonOutput)
	case "contacts":
		err = cmdContacts(ctx, profileName, *jsonOutput)
	case "threads":
		err = cmdThreads(ctx, profileName, *jsonOutput)
	case "messages":
		if len(args) < 2 {
			err = errors.New("usage: schoolctl messages <contact-id>")
			break
		}
		err = cmdMessages(ctx, profileName, args[1], *jsonOutput)
	case "send":
		if len(args) < 3 {
			err = errors.New("usage: schoolctl send <contact-id> <text>")
			break
		}
		err = cmdSend(ctx, profileName, args[1], strings.Join(args[2:], " "), *jsonOutput)
	case "login":
		if len(args) < 2 {
			err = errors.New("usage: schoolctl login <token>")
			break
		}
		err = cmdLogin(profileName, args[1])
	case "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: schoolctl [--profile <name>] [--json] <command> [args]

Commands:
  whoami                     Show the signed-in user
  login <token>              Store a token for the profile
  contacts                   List contacts (principal, linked parents, threads)
  threads                    List chat threads
  messages <contact-id>      Show the conversation with a contact
  send <contact-id> <text>   Send a message, starting the conversation if needed`)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
