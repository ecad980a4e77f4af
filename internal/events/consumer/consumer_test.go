package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func record(partition int32, offset int64) *kgo.Record {
	return &kgo.Record{
		Topic:       "publication-evaluations",
		Partition:   partition,
		Offset:      offset,
		LeaderEpoch: 3,
	}
}

func TestBatchBookkeeping(t *testing.T) {
	t.Run("all records succeed", func(t *testing.T) {
		var b batch
		b.done(record(0, 5))
		b.done(record(0, 6))

		assert.False(t, b.failed)
		assert.Len(t, b.commit, 2)
		assert.Nil(t, b.rewind)
	})

	t.Run("failure at the head rewinds to the failed offset", func(t *testing.T) {
		var b batch
		b.fail(record(0, 5))
		b.skip(record(0, 6))
		b.skip(record(0, 7))

		require.True(t, b.failed)
		assert.Empty(t, b.commit, "nothing before the failure may be committed")

		at, ok := b.rewind["publication-evaluations"][0]
		require.True(t, ok)
		assert.Equal(t, int64(5), at.Offset, "next poll must re-fetch the failed record")
		assert.Equal(t, int32(3), at.Epoch)
	})

	t.Run("prefix before the failure stays committable", func(t *testing.T) {
		var b batch
		b.done(record(0, 5))
		b.fail(record(0, 6))
		b.skip(record(0, 7))

		require.Len(t, b.commit, 1)
		assert.Equal(t, int64(5), b.commit[0].Offset)
		assert.Equal(t, int64(6), b.rewind["publication-evaluations"][0].Offset)
	})

	t.Run("skipped records on other partitions are rewound too", func(t *testing.T) {
		var b batch
		b.done(record(1, 40))
		b.fail(record(0, 5))
		b.skip(record(1, 41))
		b.skip(record(1, 42))

		require.Len(t, b.commit, 1)
		partitions := b.rewind["publication-evaluations"]
		assert.Equal(t, int64(5), partitions[0].Offset)
		assert.Equal(t, int64(41), partitions[1].Offset, "earliest skipped offset per partition")
	})

	t.Run("rewind keeps the lowest offset per partition", func(t *testing.T) {
		var b batch
		b.fail(record(0, 9))
		b.skip(record(0, 12))
		b.skip(record(0, 10))

		assert.Equal(t, int64(9), b.rewind["publication-evaluations"][0].Offset)
	})
}
