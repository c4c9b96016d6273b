// cmd/ljdecompile/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/ntmck/lj-decompiler/internal/driver"
	"github.com/ntmck/lj-decompiler/internal/report"
)

const version = "0.1.0"

var commandAliases = map[string]string{
	"d": "decode",
	"i": "inspect",
	"v": "version",
}

func main() {
	run(os.Args[1:])
}

// run dispatches a command; split out of main so the cmd/ljdecompile
// test package can drive it as a subprocess under testscript without
// re-executing the real os.Args.
func run(args []string) {
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
		args[0] = alias
	}

	switch {
	case cmd == "--help" || cmd == "-h" || cmd == "help":
		if len(args) > 1 {
			showCommandHelp(args[1])
		} else {
			showUsage()
		}
		return
	case cmd == "--version" || cmd == "-v" || cmd == "version":
		showVersion()
		return
	}

	switch cmd {
	case "decode":
		runDecode(args[1:], false)
		return
	case "inspect":
		runDecode(args[1:], true)
		return
	}

	suggestCommand(cmd)
}

// runDecode reads a .ljc file and runs it through the full decode
// pipeline, printing a textual report. dump additionally prints every
// decoded prototype's raw fields via the report package's struct dump.
func runDecode(args []string, dump bool) {
	if len(args) < 1 {
		log.Fatal("No filename provided to decode command")
	}
	filename := args[0]

	buf, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("Could not read file: %v", err)
	}

	started := time.Now()
	var result *driver.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", r)
				os.Exit(1)
			}
		}()
		result, err = driver.Run(buf)
	}()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	meta := report.Meta{
		RunID:      report.NewRunID(),
		SourceName: result.File.SourceName,
		FileSize:   len(buf),
		Started:    started,
	}
	if err := report.WriteSummary(os.Stdout, meta, result); err != nil {
		log.Fatalf("Error writing report: %v", err)
	}

	if dump {
		for _, pr := range result.Prototypes {
			if err := report.WriteDump(os.Stdout, pr.Proto); err != nil {
				log.Fatalf("Error writing dump: %v", err)
			}
		}
	}
}

// colorEnabled reports whether stdout is a real terminal, so help text
// can skip ANSI escapes when piped to a file or another process.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func showUsage() {
	title := "ljdecompile - LuaJIT 2.0 bytecode decompiler"
	if colorEnabled() {
		title = "\033[1m" + title + "\033[0m"
	}
	fmt.Println(title)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ljdecompile decode <file.ljc>    Decode and print blocks + IR      (alias: d)")
	fmt.Println("  ljdecompile inspect <file.ljc>   Decode, then dump raw prototypes  (alias: i)")
	fmt.Println()
	fmt.Println("Help:")
	fmt.Println("  ljdecompile help <command>       Show detailed help for a command")
	fmt.Println("  ljdecompile --version            Show version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ljdecompile d program.ljc")
	fmt.Println("  ljdecompile inspect program.ljc > dump.txt")
}

func showVersion() {
	fmt.Printf("ljdecompile %s\n", version)
}

func showCommandHelp(command string) {
	switch command {
	case "decode", "d":
		fmt.Println("ljdecompile decode <file.ljc>")
		fmt.Println()
		fmt.Println("Decodes a LuaJIT bytecode chunk, runs it through control-flow")
		fmt.Println("classification, block building, and IR lowering, and prints a")
		fmt.Println("textual report: one section per prototype, its basic blocks, and")
		fmt.Println("the IR lowered from each instruction.")
	case "inspect", "i":
		fmt.Println("ljdecompile inspect <file.ljc>")
		fmt.Println()
		fmt.Println("Runs the same pipeline as decode, then additionally dumps every")
		fmt.Println("prototype's raw decoded fields (headers, constant pools, upvalue")
		fmt.Println("descriptors) for troubleshooting a decode that looks wrong.")
	default:
		fmt.Printf("No help available for '%s'\n", command)
		showUsage()
	}
}

func suggestCommand(cmd string) {
	allCommands := []string{"decode", "inspect", "help", "version"}

	fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n", cmd)

	suggestions := findSimilarCommands(cmd, allCommands, 3)
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\nDid you mean one of these?\n")
		for _, suggestion := range suggestions {
			alias := ""
			for a, fullCmd := range commandAliases {
				if fullCmd == suggestion {
					alias = fmt.Sprintf(" (alias: %s)", a)
					break
				}
			}
			fmt.Fprintf(os.Stderr, "  ljdecompile %s%s\n", suggestion, alias)
		}
	}
	os.Exit(1)
}

func findSimilarCommands(input string, commands []string, maxDistance int) []string {
	var similar []string
	for _, cmd := range commands {
		if levenshteinDistance(input, cmd) <= maxDistance {
			similar = append(similar, cmd)
		}
	}
	return similar
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = minInt(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(s1)][len(s2)]
}

func minInt(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
