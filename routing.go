package beerscot

import (
	"context"
	"fmt"
	"github.com/nlopes/slack"
	"hash"
	"hash/crc32"
	"math"
	"sync"
)

// SlackMessageID holds the elements that form a unique message identifier for slack. Technically, slack also uses
// the workspace id as the first part of that unique identifier but since an instance of beerscot only lives within
// a single workspace, that part is left out
type SlackMessageID struct {
	channelID string
	timestamp string
}

// msgProcessor is the function partition workers invoke for every message routed to them
type msgProcessor func(msgEvent slack.MessageEvent)

type partitionRouter struct {
	// Logger
	log *sLogger

	// messageQueues with partition keyed by the hash of the incoming message id so that
	// processing of a given message is always handled by the same work queue
	messageQueues []chan slack.MessageEvent

	// workers tracks running partition workers so that stopping waits for queued messages to be processed
	workers sync.WaitGroup

	// hash function to direct message processing to partitions. Only used from the dispatching goroutine
	hasher   hash.Hash32
	hashMask int

	*instrumenter
}

func newPartitionRouter(partitionCount int, queueBufferSize int, log *sLogger, instrumenter *instrumenter) (pr *partitionRouter, err error) {
	if !isPowerOfTwo(partitionCount) {
		return nil, fmt.Errorf("A partition router can only work with a partitionCount that is a power of two but was [%d]", partitionCount)
	}

	pr = new(partitionRouter)
	pr.messageQueues = make([]chan slack.MessageEvent, partitionCount)
	for i := range pr.messageQueues {
		pr.messageQueues[i] = make(chan slack.MessageEvent, queueBufferSize)
	}
	pr.hasher = crc32.NewIEEE()
	pr.hashMask = hashMask(partitionCount)
	pr.log = log
	pr.instrumenter = instrumenter

	return pr, nil
}

// start launches one worker per partition, each invoking process for every message of its queue
func (pr *partitionRouter) start(process msgProcessor) {
	for i, queue := range pr.messageQueues {
		pr.workers.Add(1)

		go func(partition int, queue <-chan slack.MessageEvent) {
			defer pr.workers.Done()

			for msgEvent := range queue {
				process(msgEvent)
			}

			pr.log.Debugf("Worker for partition [%d] terminated", partition)
		}(i, queue)
	}
}

// stop closes all partition queues and waits for workers to finish processing what was already queued.
// No message should be routed after calling stop
func (pr *partitionRouter) stop() {
	for _, queue := range pr.messageQueues {
		close(queue)
	}

	pr.workers.Wait()
}

// routeMessageEvent routes the message processing to the correct partition based on its message id
func (pr *partitionRouter) routeMessageEvent(msgEvent slack.MessageEvent) {
	msgID := SlackMessageID{channelID: msgEvent.Channel, timestamp: msgEvent.Timestamp}

	partition := pr.partitionForMsgID(msgID)

	pr.log.Debugf("Dispatching message [%s] to partition [%d]", msgID, partition)
	d := measure(func() {
		pr.messageQueues[partition] <- msgEvent
	})

	pr.coreMetrics.msgDispatchLatencyMillis.Record(context.Background(), d.Milliseconds())
}

// partitionForMsgID returns the partition index for a given message ID
func (pr *partitionRouter) partitionForMsgID(msgID SlackMessageID) (partition int) {
	pr.hasher.Reset()
	pr.hasher.Write([]byte(msgID.channelID))
	pr.hasher.Write([]byte(msgID.timestamp))
	res := pr.hasher.Sum32()

	// Keep only the rightmost bits so we have a max equal to the partition count
	return int(res) & pr.hashMask
}

// isPowerOfTwo returns true if val is a power of two or false if not
func isPowerOfTwo(val int) bool {
	return (val != 0) && (val&(val-1)) == 0
}

// hashMask builds a mask for a partitionCount (which should be a power of two) to get a hash value
// that is in the range of the number of partitions we have
func hashMask(partitionCount int) int {
	maskSize := int(math.Log2(float64(partitionCount)))
	mask := 0
	for i := 0; i < maskSize; i++ {
		mask = mask<<1 | 1
	}

	return mask
}
