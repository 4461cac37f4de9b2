package webm

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/huandu/go-assert"
)

func TestParseBlockPayloadUnlaced(t *testing.T) {
	// track 1, timecode -2, keyframe
	b := []byte{0x81, 0xFF, 0xFE, 0x80, 'a', 'b', 'c'}
	track, tc, flags, frames, err := parseBlockPayload(b, 0)
	assert.Assert(t, err == nil)
	assert.Equal(t, track, uint64(1))
	assert.Equal(t, tc, int16(-2))
	assert.Equal(t, flags, byte(0x80))
	assert.Equal(t, frames, [][]byte{[]byte("abc")})
}

func TestParseBlockPayloadLacing(t *testing.T) {
	cases := []struct {
		name string
		body []byte
		want [][]byte
	}{
		{
			name: "xiph",
			body: []byte{0x82, 0x00, 0x00, 0x82, 0x02, 0x01, 0x02, 'a', 'b', 'c', 'd', 'e', 'f'},
			want: [][]byte{[]byte("a"), []byte("bc"), []byte("def")},
		},
		{
			name: "fixed",
			body: []byte{0x82, 0x00, 0x00, 0x84, 0x01, 'a', 'b', 'c', 'd'},
			want: [][]byte{[]byte("ab"), []byte("cd")},
		},
		{
			// sizes 2, then delta +1 (raw 0x40 = bias 63 + 1)
			name: "ebml",
			body: []byte{0x82, 0x00, 0x00, 0x86, 0x02, 0x82, 0xC0, 'a', 'b', 'c', 'd', 'e', 'f'},
			want: [][]byte{[]byte("ab"), []byte("cde"), []byte("f")},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			track, _, _, frames, err := parseBlockPayload(c.body, 0)
			assert.Assert(t, err == nil)
			assert.Equal(t, track, uint64(2))
			assert.Equal(t, frames, c.want)
		})
	}
}

func TestParseBlockPayloadRejectsBadLacing(t *testing.T) {
	for name, body := range map[string][]byte{
		"short":         {0x81, 0x00},
		"xiph overrun":  {0x81, 0x00, 0x00, 0x02, 0x01, 0x09, 'a'},
		"fixed uneven":  {0x81, 0x00, 0x00, 0x04, 0x01, 'a', 'b', 'c'},
		"missing count": {0x81, 0x00, 0x00, 0x02},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, _, _, err := parseBlockPayload(body, 42)
			var be *BlockError
			assert.Assert(t, errors.As(err, &be))
			assert.Equal(t, be.Offset, int64(42))
		})
	}
}

func TestReadHeaderVints(t *testing.T) {
	// Cluster ID, 1-byte size 5, then SimpleBlock ID with unknown 8-byte size.
	data := []byte{0x1F, 0x43, 0xB6, 0x75, 0x85, 0xA3, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	er, err := newEBMLReader(bytes.NewReader(data))
	assert.Assert(t, err == nil)

	h, err := er.readHeader()
	assert.Assert(t, err == nil)
	assert.Equal(t, h.id, IDCluster)
	assert.Equal(t, h.size, uint64(5))
	assert.Equal(t, h.data, int64(5))

	h, err = er.readHeader()
	assert.Assert(t, err == nil)
	assert.Equal(t, h.id, IDSimpleBlock)
	assert.Equal(t, h.size, unknownSize)
	assert.Equal(t, h.end(), int64(-1))

	_, err = er.readHeader()
	assert.Equal(t, err, io.EOF)
}

func TestReadHeaderInvalidID(t *testing.T) {
	er, err := newEBMLReader(bytes.NewReader([]byte{0x00, 0x81}))
	assert.Assert(t, err == nil)
	_, err = er.readHeader()
	assert.Assert(t, errors.Is(err, ErrCorrupt))
}

func TestReadHeaderTruncated(t *testing.T) {
	er, err := newEBMLReader(bytes.NewReader([]byte{0x1A, 0x45}))
	assert.Assert(t, err == nil)
	_, err = er.readHeader()
	assert.Equal(t, err, io.ErrUnexpectedEOF)
}
