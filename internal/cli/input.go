package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func (a *App) readLine(prompt string) string {
	fmt.Print(prompt)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// readMultiline collects lines until a line containing a single "." is
// entered.
func (a *App) readMultiline(prompt string) string {
	fmt.Println(prompt + " (finish with a single '.' on its own line)")
	var lines []string
	for {
		line, err := a.reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pass, err
}
