package observability

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorCyan     = "\033[36m"
	colorBold     = "\033[1m"
	colorPurple   = "\033[35m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner renders the startup header, centered to the terminal width.
// Skipped entirely when stdout is not a terminal.
func PrintBanner() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}

	banner := `
    ____  __  ______  ____  __________
   / __ \/ / / / __ \/ __ \/ ____/ __ \
  / /_/ / / / / / / / / / / __/ / /_/ /
 / _, _/ /_/ / /_/ / /_/ / /___/ _, _/
/_/ |_|\____/_____/_____/_____/_/ |_|

        >> PLAN / EXECUTE / VERIFY <<
`

	width := termWidth()
	for _, l := range strings.Split(banner, "\n") {
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Printf("%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}
