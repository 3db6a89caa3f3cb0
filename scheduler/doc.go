// Package scheduler provides the schedulers an osc.Stream forwards on.
//
// Loop runs actions on one goroutine against the wall clock. Virtual runs
// them only when its clock is advanced, which makes timing deterministic in
// tests.
package scheduler
