/*
Package ports defines the driven ports (interfaces) of the sieve pipeline.

These interfaces decouple the steps and the outer adapters from concrete
storage backends.

# Key Interfaces

  - ReportStore: Responsible for persisting and loading the report of a finished run.

RunReportStoreContract is a shared test suite that every ReportStore
implementation is expected to pass.
*/
package ports
