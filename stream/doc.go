// Package stream implements the streaming pipeline: decoding raw byte
// chunks into frames, transforming frames, and mapping frames into the
// neutral event sequence.
//
// All stages are lazy and consumer-paced. A pipeline iterates as
// decode -> transforms in registration order -> map, yielding events as
// iter.Seq2 sequences that pull from upstream only when the consumer asks
// for the next value.
package stream
