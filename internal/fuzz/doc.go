// Package fuzztests holds fuzz harnesses for the decoder and the checking
// engine. Arbitrary bytes must be rejected with an error, never a panic or
// a hang.
package fuzztests
