// Package ui renders reelscraper's plain terminal output: colored
// messages, per-source progress lines and run log tables.
package ui

import "fmt"

// Banner is printed at the top of interactive commands
const Banner = `
  ┏━┓┏━╸┏━╸╻  ┏━┓┏━╸┏━┓┏━┓┏━┓┏━╸┏━┓
  ┣┳┛┣╸ ┣╸ ┃  ┗━┓┃  ┣┳┛┣━┫┣━┛┣╸ ┣┳┛
  ╹┗╸┗━╸┗━╸┗━╸┗━┛┗━╸╹┗╸╹ ╹╹  ┗━╸╹┗╸
      daily reel ingestion
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintBanner prints the banner in cyan
func PrintBanner() {
	fmt.Print(Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// StatusColor colors a run status for terminal output
func StatusColor(status string) string {
	switch status {
	case "completed":
		return Green(status)
	case "completed_with_errors":
		return Yellow(status)
	case "failed":
		return Red(status)
	case "running":
		return Cyan(status)
	default:
		return Dim(status)
	}
}
