package beerscot

import (
	"fmt"
	"github.com/nlopes/slack"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/api/metric"
	"io/ioutil"
	"log"
	"math"
	"sync"
	"testing"
)

func newTestInstrumenter() *instrumenter {
	return newInstrumenter("test", metric.NoopMeter{})
}

func newDiscardingSLogger() *sLogger {
	return NewSLogger(log.New(ioutil.Discard, "", 0), true)
}

func TestNewPartitioner(t *testing.T) {
	tests := map[string]struct {
		partitionCount int
		expectedError  string
	}{
		"InvalidZeroPartitions": {
			partitionCount: 0,
			expectedError:  "A partition router can only work with a partitionCount that is a power of two but was [0]",
		},
		"ValidOnePartition": {
			partitionCount: 1,
		},
		"ValidTwoPartitions": {
			partitionCount: 2,
		},
		"Invalid3Partitions": {
			partitionCount: 3,
			expectedError:  "A partition router can only work with a partitionCount that is a power of two but was [3]",
		},
		"Valid8Partitions": {
			partitionCount: 8,
		},
		"Invalid12Partitions": {
			partitionCount: 12,
			expectedError:  "A partition router can only work with a partitionCount that is a power of two but was [12]",
		},
		"Valid16Partitions": {
			partitionCount: 16,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			pr, err := newPartitionRouter(tc.partitionCount, 1, newDiscardingSLogger(), newTestInstrumenter())

			if tc.expectedError == "" {
				assert.NoError(t, err)
				if assert.NotNil(t, pr) {
					assert.Len(t, pr.messageQueues, tc.partitionCount)
				}
			} else {
				assert.EqualError(t, err, tc.expectedError)
			}
		})
	}
}

func TestConsistentHashing(t *testing.T) {
	msgID := SlackMessageID{channelID: "general", timestamp: "11298321983.23"}

	for i := 0; i < 16; i++ {
		partitionCount := int(math.Pow(float64(2), float64(i)))
		name := fmt.Sprintf("With_%d_Partitions", partitionCount)

		t.Run(name, func(t *testing.T) {
			pr, _ := newPartitionRouter(partitionCount, 1, newDiscardingSLogger(), newTestInstrumenter())
			partition := pr.partitionForMsgID(msgID)

			for i := 0; i < 100; i++ {
				assert.Equal(t, partition, pr.partitionForMsgID(msgID))
			}
		})
	}
}

func TestHashDistribution(t *testing.T) {
	// Generate message IDs that are all different to validate the uniform distribution across partitions
	msgIDs := make([]SlackMessageID, 0)
	for i := 0; i < 100000; i++ {
		msgTimestamp := fmt.Sprintf("19292929%d.214", i*1000)
		msgIDs = append(msgIDs, SlackMessageID{channelID: "beer", timestamp: msgTimestamp})
		msgIDs = append(msgIDs, SlackMessageID{channelID: "bière", timestamp: msgTimestamp})
	}

	msgIDCount := len(msgIDs)

	for i := 0; i < 5; i++ {
		partitionCount := int(math.Pow(float64(2), float64(i)))
		name := fmt.Sprintf("With_%d_Partitions", partitionCount)
		partitionHitCount := make([]int, partitionCount)

		t.Run(name, func(t *testing.T) {
			pr, _ := newPartitionRouter(partitionCount, 1, newDiscardingSLogger(), newTestInstrumenter())

			for _, msgID := range msgIDs {
				partition := pr.partitionForMsgID(msgID)
				partitionHitCount[partition] = partitionHitCount[partition] + 1
			}

			expectedHitsPerPartition := float64(msgIDCount) / float64(partitionCount)
			deviationTolerance := 5.0 * expectedHitsPerPartition / 100
			for partition, hitCount := range partitionHitCount {
				assert.InDeltaf(t, expectedHitsPerPartition, hitCount, deviationTolerance, "All partitions should have received about [%.1f] hits but partition [%d] got [%d]", expectedHitsPerPartition, partition, hitCount)
			}
		})
	}
}

func TestHashMask(t *testing.T) {
	for i := 0; i < 16; i++ {
		partitionCount := int(math.Pow(float64(2), float64(i)))
		name := fmt.Sprintf("With_%d_Partitions", partitionCount)

		t.Run(name, func(t *testing.T) {
			mask := hashMask(partitionCount)
			assert.Equal(t, partitionCount-1, mask)
		})
	}
}

func TestStopWaitsForQueuedMessages(t *testing.T) {
	pr, err := newPartitionRouter(4, 10, newDiscardingSLogger(), newTestInstrumenter())
	assert.NoError(t, err)

	var lock sync.Mutex
	processed := make([]string, 0)
	pr.start(func(msgEvent slack.MessageEvent) {
		lock.Lock()
		defer lock.Unlock()

		processed = append(processed, msgEvent.Text)
	})

	for i := 0; i < 20; i++ {
		msgEvent := slack.MessageEvent{}
		msgEvent.Channel = "CBEER"
		msgEvent.Timestamp = fmt.Sprintf("1000%d.000", i)
		msgEvent.Text = fmt.Sprintf("untappd beer %d", i)

		pr.routeMessageEvent(msgEvent)
	}

	pr.stop()

	assert.Len(t, processed, 20)
}
