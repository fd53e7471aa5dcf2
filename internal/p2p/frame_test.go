package p2p

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameReader(t *testing.T) {
	var tests = []struct {
		name   string
		setup  func(t *testing.T) *FrameReader
		assert func(t *testing.T, r *FrameReader)
	}{
		{
			name: "splits a stream into frames",
			setup: func(t *testing.T) *FrameReader {
				var stream bytes.Buffer
				stream.Write(EncodeMessage(Unchoke{}))
				stream.Write(KeepAlive())
				stream.Write(EncodeMessage(Have{Index: 3}))
				return NewFrameReader(iotest.OneByteReader(&stream), 0)
			},
			assert: func(t *testing.T, r *FrameReader) {
				frame, err := r.ReadFrame()
				require.NoError(t, err)
				assert.Equal(t, EncodeMessage(Unchoke{}), frame)

				frame, err = r.ReadFrame()
				require.NoError(t, err)
				assert.True(t, IsKeepAlive(frame))

				frame, err = r.ReadFrame()
				require.NoError(t, err)
				msg, err := DecodeMessage(frame)
				require.NoError(t, err)
				assert.Equal(t, Have{Index: 3}, msg)

				_, err = r.ReadFrame()
				assert.Equal(t, io.EOF, err)
			},
		},
		{
			name: "stream ending inside a frame",
			setup: func(t *testing.T) *FrameReader {
				frame := EncodeMessage(Request{Index: 1, Begin: 2, Length: 3})
				return NewFrameReader(bytes.NewReader(frame[:len(frame)-2]), 0)
			},
			assert: func(t *testing.T, r *FrameReader) {
				_, err := r.ReadFrame()
				assert.Equal(t, io.ErrUnexpectedEOF, err)
			},
		},
		{
			name: "stream ending inside the length prefix",
			setup: func(t *testing.T) *FrameReader {
				return NewFrameReader(bytes.NewReader([]byte{0x00, 0x00}), 0)
			},
			assert: func(t *testing.T, r *FrameReader) {
				_, err := r.ReadFrame()
				assert.Equal(t, io.ErrUnexpectedEOF, err)
			},
		},
		{
			name: "declared length above the limit",
			setup: func(t *testing.T) *FrameReader {
				frame := EncodeMessage(Bitfield{Bitfield: make([]byte, 32)})
				return NewFrameReader(bytes.NewReader(frame), 16)
			},
			assert: func(t *testing.T, r *FrameReader) {
				_, err := r.ReadFrame()
				assert.ErrorIs(t, err, ErrFrameTooLarge)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, tt.setup(t))
		})
	}
}

func TestIsKeepAlive(t *testing.T) {
	assert.True(t, IsKeepAlive(KeepAlive()))
	assert.False(t, IsKeepAlive(EncodeMessage(Choke{})))
	assert.False(t, IsKeepAlive([]byte{0x00, 0x00, 0x00, 0x01}))
}
