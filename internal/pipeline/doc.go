// Package pipeline implements the three state-machine workers that drive
// articles pending -> embedded -> matched -> validated.
//
// Workers share no in-process queues: each claims work by article status
// column, so the database is the queue and workers are idempotent re-readers.
// Every worker body returns a runner.Outcome; the runner maps outcomes to
// backoff and errors never escape a loop.
package pipeline
