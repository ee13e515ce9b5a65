/*
Package sieve is a conditional data-cleaning pipeline built on a small workflow graph engine.

A run loads a CSV file, inspects it for missing values and only then fills the numeric gaps
with column means. It then computes descriptive statistics and reports them. The decision to
clean is made at runtime by a router that reads the inspection result, so complete data never
pays for the cleaning step.

# Concept

The pipeline is a directed graph of named steps compiled once by [graph.Definition.Compile].
Compilation rejects duplicate names, dead ends, cycles, labels without a dispatch entry and
branches that never rejoin. A compiled graph is executed by an engine that threads a
[domain.State] value through every step. Steps receive the state by value and return a new one;
the table it references is never mutated in place.

	load -> inspect -> {Handle: clean, Skip: summarize}
	clean -> summarize -> report -> End

# Usage

	package main

	import (
		"context"
		"log"
		"os"

		"github.com/aretw0/sieve"
	)

	func main() {
		engine, err := sieve.New(sieve.WithOutput(os.Stdout, os.Stdout))
		if err != nil {
			log.Fatal(err)
		}

		if _, err := engine.Run(context.Background(), "data/example.csv"); err != nil {
			log.Fatal(err)
		}
	}

A failing step aborts the run with a [domain.StepExecutionError] naming the step. Later steps
never run and no partial state is returned.

# Adapters

The same engine is exposed over HTTP (pkg/adapters/http) and as an MCP server
(pkg/adapters/mcp). Reports of finished runs can be persisted through a [ports.ReportStore];
in-memory, file and Redis implementations ship with the module.
*/
package sieve
