// Package collaboration runs multiple language-model agents against a
// single user turn. Four strategies are supported: sequential
// pipelining, parallel fan-out, multi-round debate, and
// fan-out-then-synthesize. Per-agent failures are captured as values in
// the result, never propagated; a turn fails outright only when it
// could not start at all.
package collaboration
