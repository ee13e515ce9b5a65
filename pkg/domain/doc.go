/*
Package domain contains the core types shared by the graph engine and the
cleaning pipeline.

It is kept free of I/O so every other package can depend on it.

# Key Entities

  - State: the value threaded through every step of one run (source path,
    table, missing-value flag, summary).
  - Label: the closed set of routing decisions a router may return.
  - LifecycleHooks: observability callbacks fired by the executor.
  - Report: the persisted outcome of a finished run.
  - Errors: the configuration, routing and execution error taxonomy.
*/
package domain
