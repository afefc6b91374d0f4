// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/tebeka/atexit"

	"github.com/ezrec/mimari/cpu"
	"github.com/ezrec/mimari/emulator"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

// fatal reports an error and exits, running the atexit handlers.
func fatal(format string, args ...any) {
	fmt.Fprintln(os.Stderr, red(fmt.Sprintf(format, args...)))
	atexit.Exit(1)
}

func main() {
	var compile string
	var load string
	var save string
	var output string
	var limit int
	var memory int
	var console bool
	var dump bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&load, "l", "", ".img program image to load")
	flag.StringVar(&save, "s", "", "Save program image, do not execute")
	flag.StringVar(&output, "o", "-", "Console output")
	flag.IntVar(&limit, "n", 0, "Maximum instructions to execute (0 is unlimited)")
	flag.IntVar(&memory, "m", emulator.MEMORY_SIZE, "Memory size, in cells")
	flag.BoolVar(&console, "console", false, "Use console trap services")
	flag.BoolVar(&dump, "d", false, "Dump machine state on exit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		fatal("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) != 0 && len(load) != 0 {
		fatal("%v: -c and -l are exclusive", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	err := emu.UseMemory(memory)
	if err != nil {
		fatal("%v: -m %d: %v", os.Args[0], memory, err)
	}
	if console {
		emu.UseConsoleTraps()
	}
	atexit.Register(func() { emu.Close() })

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			fatal("%v: %v", compile, err)
		}
		err = emu.Assemble(inf)
		inf.Close()
		if err != nil {
			fatal("%v: %v", compile, err)
		}
	}

	// Load an existing program image.
	if len(load) != 0 {
		inf, err := os.Open(load)
		if err != nil {
			fatal("%v: %v", load, err)
		}
		emu.Program, err = cpu.ReadImage(inf)
		inf.Close()
		if err != nil {
			fatal("%v: %v", load, err)
		}
	}

	if len(save) != 0 {
		ouf, err := os.Create(save)
		if err != nil {
			fatal("%v: %v", save, err)
		}
		atexit.Register(func() { ouf.Close() })
		err = cpu.WriteImage(ouf, emu.Program)
		if err != nil {
			fatal("%v: %v", save, err)
		}
		if verbose {
			log.Printf("%v: %d instructions", save, emu.Program.Len())
		}
		atexit.Exit(0)
	}

	if output == "-" {
		emu.Console.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			fatal("%v: %v", output, err)
		}
		atexit.Register(func() { ouf.Close() })
		emu.Console.Output = ouf
	}

	if dump {
		atexit.Register(func() {
			fmt.Fprint(os.Stderr, yellow(emu.Machine.String()))
		})
	}

	err = emu.Reset()
	if err != nil {
		fatal("%v", err)
	}

	err = emu.Run(limit)
	if err != nil {
		fatal("%v", err)
	}

	atexit.Exit(0)
}
