package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.resourceID != "" {
		s = a.resourceID
	}
	if a.masterKey != nil {
		s += " unlocked"
	}
	s = strings.TrimSpace(s)
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("Welcome to notekeeper (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("nk %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Available commands: open, edit, save, history, show, diff, restore, rmver, purge, unlock, push, pull, watch, status, exit")

		case "open":
			a.open(args)
		case "edit":
			a.edit()
		case "save":
			a.save(ctx)
		case "history":
			a.history()
		case "show":
			a.show(args)
		case "diff":
			a.diffCurrent(args)
		case "restore":
			a.restore(args)
		case "rmver":
			a.deleteVersion(ctx, args)
		case "purge":
			a.purge(ctx)
		case "unlock":
			a.unlock(ctx)
		case "push":
			a.push(ctx)
		case "pull":
			a.pull(ctx)
		case "watch":
			a.watch(ctx)
		case "status":
			a.status(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command, type 'help'")
		}
	}
}
