// Package queue provides the queue service capability consumed by the worker:
// long-poll receive with a lease, send to a target queue, and delete.
//
// Two backends are available:
//   - RedisStreams: a stream plus consumer group. The ack token is the entry
//     id; entries pending longer than the visibility timeout are reclaimed.
//   - SQS: Amazon SQS. Queue identifiers are queue URLs and the ack token is
//     the receipt handle.
//
// Every failed call returns *Error, whose Kind tells the retry policy whether
// the failure is transient:
//
//	msgs, err := client.Receive(ctx, queue.ReceiveOptions{
//	    MaxMessages:       10,
//	    WaitTime:          20 * time.Second,
//	    VisibilityTimeout: 60 * time.Second,
//	})
package queue
