// Package main provides the entry point for the six-stage pipeline
// simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"sixstage/loader"
	"sixstage/timing/cache"
	"sixstage/timing/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sixsim", flag.ContinueOnError)
	dump := fs.Bool("p", false, "enable per-tick pipeline dump to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 4 && rest[3] == "-p" {
		*dump = true
		rest = rest[:3]
	}
	if len(rest) != 3 {
		fmt.Fprintln(os.Stderr, "usage: sixsim <instFile> <dataFile> <outFile> [-p]")
		return 2
	}
	instFile, dataFile, outFile := rest[0], rest[1], rest[2]

	prog, err := loader.Load(instFile, dataFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sixsim: %v\n", err)
		return 1
	}

	out, err := os.Create(outFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sixsim: %v\n", err)
		return 1
	}
	defer out.Close()

	ram := cache.NewMemory()
	ram.LoadProgram(prog.Instructions)
	ram.LoadData(prog.Data)
	mem := cache.NewMemorySystem(ram)

	var dumpWriter *os.File
	if *dump {
		dumpWriter = os.Stderr
	}

	var pipe *pipeline.Pipeline
	if dumpWriter != nil {
		pipe = pipeline.New(mem, out, dumpWriter)
	} else {
		pipe = pipeline.New(mem, out, nil)
	}

	if _, err := pipe.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sixsim: %v\n", err)
		return 1
	}

	return 0
}
