// Package passage defines the queue-passage record and the static domain
// tables that every later stage keys on: zone groups, congestion levels,
// hard wait-time bounds and queue-size buckets.
//
// A Record is one observed passage through a checkpoint queue: the queue
// size when the object joined, three predicted wait times (one per
// estimation algorithm) and the wait time that was actually observed.
package passage
