// Package resilience implements the failure-handling engine: token-bucket
// rate limiting, circuit breaking, backpressure, classified retry,
// weighted fallback chains, and a resilient executor composing them
// around one logical provider call.
//
// Every failure entering the engine is classified into a core.ErrorKind
// before any retry, fallback, or circuit decision is made. Each primitive
// serializes its own state and is safe for use from many concurrent
// in-flight calls.
package resilience
