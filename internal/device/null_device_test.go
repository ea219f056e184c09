package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaeringr/cdsp/internal/chunk"
)

func testFormat() Format {
	return Format{SampleRate: 48000, Channels: 2, BlockSize: 4, SampleFormat: chunk.S16LE}
}

func TestNullCaptureServesSeededBlocksInOrder(t *testing.T) {
	format := testFormat()
	c1 := chunk.New(2, 4)
	c1.Waveforms[0] = []float64{0.1, 0.1, 0.1, 0.1}
	c1.Waveforms[1] = []float64{0.2, 0.2, 0.2, 0.2}
	b1, err := ChunkToBlock(c1, format)
	require.NoError(t, err)

	cap := NewNullCapture(format, [][]byte{b1})
	require.NoError(t, cap.Open())

	buf := make([]byte, len(b1))
	require.NoError(t, cap.ReadBlock(buf))
	assert.Equal(t, b1, buf)

	err = cap.ReadBlock(buf)
	assert.ErrorIs(t, err, ErrDeviceDone)
}

func TestNullCaptureXRunThenRecovers(t *testing.T) {
	format := testFormat()
	blocks := ChunksFromSilence(format, 1)
	cap := NewNullCapture(format, blocks)
	cap.TriggerXRunOnce()

	buf := make([]byte, len(blocks[0]))
	err := cap.ReadBlock(buf)
	assert.ErrorIs(t, err, ErrXRun)

	require.NoError(t, cap.Prepare())
	assert.Equal(t, 1, cap.PrepareCount())

	require.NoError(t, cap.ReadBlock(buf))
}

func TestNullCaptureRateShiftRecorded(t *testing.T) {
	cap := NewNullCapture(testFormat(), nil)
	require.NoError(t, cap.SetSampleRateShift(100250))
	assert.Equal(t, 100250, cap.ShiftPPM())
}

func TestNullPlaybackRecordsWrittenBlocks(t *testing.T) {
	format := testFormat()
	pb := NewNullPlayback(format)
	block := ChunksFromSilence(format, 1)[0]
	require.NoError(t, pb.WriteBlock(block))
	assert.Len(t, pb.Written(), 1)
}

func TestNullPlaybackBufferedFramesRoundTrip(t *testing.T) {
	pb := NewNullPlayback(testFormat())
	pb.SetBufferedFrames(512)
	n, err := pb.BufferedFrames()
	require.NoError(t, err)
	assert.Equal(t, 512, n)
}

func TestNullPlaybackXRunThenRecovers(t *testing.T) {
	format := testFormat()
	pb := NewNullPlayback(format)
	pb.TriggerXRunOnce()
	block := ChunksFromSilence(format, 1)[0]

	err := pb.WriteBlock(block)
	assert.ErrorIs(t, err, ErrXRun)
	require.NoError(t, pb.Prepare())
	require.NoError(t, pb.WriteBlock(block))
}
