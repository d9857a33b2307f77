// Package operations runs independent units of work on a bounded pool.
//
// Run fans inputs out to at most Workers goroutines and collects one Result
// per input. A failing or panicking unit is reported in its Result and never
// cancels its siblings, which is what per-report and per-state isolation
// rely on. Batches splits a work list into checkpoint-sized slices.
package operations
