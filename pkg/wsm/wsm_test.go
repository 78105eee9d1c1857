package wsm

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pavel7004/goWsmExtract/pkg/domain"
)

func appendSection(buf []byte, tag string, payload []byte) []byte {
	buf = append(buf, tag...)

	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	buf = append(buf, length[:]...)

	return append(buf, payload...)
}

func preamble(sig string, size uint32) []byte {
	buf := []byte(sig)

	var s [4]byte
	binary.LittleEndian.PutUint32(s[:], size)
	return append(buf, s[:]...)
}

func TestScannerRoundTrip(t *testing.T) {
	sections := []*domain.Section{
		{Tag: domain.TagVERS, Payload: []byte{0x01, 0x00}},
		{Tag: domain.TagWAM, Payload: []byte("RIFF\x00\x00\x00\x00WAVE")},
		{Tag: domain.Tag{'X', 'T', 'R', 'A'}, Payload: []byte{0xde, 0xad, 0xbe, 0xef}},
		{Tag: domain.TagGUID, Payload: []byte{}},
	}

	var buf []byte
	for _, sec := range sections {
		buf = appendSection(buf, string(sec.Tag[:]), sec.Payload)
	}

	sc := NewScanner(bytes.NewReader(buf))
	for i, exp := range sections {
		actual, err := sc.Next()
		require.NoError(t, err, "section %d", i)
		assert.Equal(t, exp, actual)
	}

	_, err := sc.Next()
	require.Equal(t, io.EOF, err)
}

func TestScannerCleanEOF(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		sc := NewScanner(bytes.NewReader(nil))
		_, err := sc.Next()
		require.Equal(t, io.EOF, err)
	})

	t.Run("ends on section boundary", func(t *testing.T) {
		var buf []byte
		buf = appendSection(buf, "VERS", []byte{0x02})
		buf = appendSection(buf, "GUID", bytes.Repeat([]byte{0xaa}, 16))
		buf = appendSection(buf, "INST", []byte("instruments"))

		sc := NewScanner(bytes.NewReader(buf))
		for i := 0; i < 3; i++ {
			_, err := sc.Next()
			require.NoError(t, err, "section %d", i)
		}

		_, err := sc.Next()
		require.Equal(t, io.EOF, err)

		_, err = sc.Next()
		require.Equal(t, io.EOF, err)
	})
}

func TestScannerTruncatedHeader(t *testing.T) {
	t.Run("no complete section", func(t *testing.T) {
		sc := NewScanner(bytes.NewReader([]byte{0x41, 0x42}))
		_, err := sc.Next()
		require.ErrorIs(t, err, ErrTruncatedHeader)
		t.Log(err)
	})

	// 1-3 stray bytes cut the tag short, 4-7 the length field.
	for stray := 1; stray <= 7; stray++ {
		t.Run(strconv.Itoa(stray)+" stray bytes", func(t *testing.T) {
			buf := appendSection(nil, "VERS", []byte{0x01})
			buf = append(buf, make([]byte, stray)...)

			sc := NewScanner(bytes.NewReader(buf))
			_, err := sc.Next()
			require.NoError(t, err)

			_, err = sc.Next()
			require.ErrorIs(t, err, ErrTruncatedHeader)
		})
	}
}

func TestScannerTruncatedPayload(t *testing.T) {
	t.Run("payload cut short", func(t *testing.T) {
		buf := appendSection(nil, "INST", []byte("complete"))
		buf = append(buf, "WAM "...)

		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], 100)
		buf = append(buf, length[:]...)
		buf = append(buf, "short"...)

		sc := NewScanner(bytes.NewReader(buf))
		_, err := sc.Next()
		require.NoError(t, err)

		_, err = sc.Next()
		require.ErrorIs(t, err, ErrTruncatedPayload)
		t.Log(err)
	})

	t.Run("no payload bytes at all", func(t *testing.T) {
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], 1)
		buf := append([]byte("GUID"), length[:]...)

		sc := NewScanner(bytes.NewReader(buf))
		_, err := sc.Next()
		require.ErrorIs(t, err, ErrTruncatedPayload)
	})
}

func TestScannerEmptyPayload(t *testing.T) {
	sc := NewScanner(bytes.NewReader(appendSection(nil, "GUID", nil)))

	sec, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, domain.TagGUID, sec.Tag)
	assert.Equal(t, []byte{}, sec.Payload)

	_, err = sc.Next()
	require.Equal(t, io.EOF, err)
}

func TestScannerStickyError(t *testing.T) {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], 50)
	buf := append([]byte("VERS"), length[:]...)

	sc := NewScanner(bytes.NewReader(buf))
	_, err1 := sc.Next()
	require.ErrorIs(t, err1, ErrTruncatedPayload)

	_, err2 := sc.Next()
	require.Equal(t, err1, err2)
}

func TestNewReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		err   error
	}{
		{name: "ATTM accepted", input: preamble("ATTM", 0)},
		{name: "SNGM accepted", input: preamble("SNGM", 42)},
		{name: "unknown signature", input: preamble("RIFF", 0), err: ErrInvalidSignature},
		{name: "short signature", input: []byte("AT"), err: ErrInvalidSignature},
		{name: "empty file", input: nil, err: ErrInvalidSignature},
		{name: "truncated size field", input: []byte("ATTM\x01\x02"), err: ErrTruncatedHeader},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tc.input))
			if tc.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestReaderHeader(t *testing.T) {
	r, err := NewReader(bytes.NewReader(preamble("SNGM", 0x11223344)))
	require.NoError(t, err)

	assert.Equal(t, Header{Signature: SignatureSNGM, Size: 0x11223344}, r.Header())

	_, err = r.Next()
	require.Equal(t, io.EOF, err)
}

func TestReaderReadSections(t *testing.T) {
	t.Run("whole container", func(t *testing.T) {
		exp := []*domain.Section{
			{Tag: domain.TagVERS, Payload: []byte{0x03, 0x00}},
			{Tag: domain.TagWAM, Payload: []byte("wam contents")},
			{Tag: domain.TagIMG, Payload: bytes.Repeat([]byte{0x11}, 32)},
		}

		buf := preamble("ATTM", 0)
		for _, sec := range exp {
			buf = appendSection(buf, string(sec.Tag[:]), sec.Payload)
		}

		r, err := NewReader(bytes.NewReader(buf))
		require.NoError(t, err)

		secs, err := r.ReadSections()
		require.NoError(t, err)
		assert.Equal(t, exp, secs)
	})

	t.Run("keeps sections read before a failure", func(t *testing.T) {
		buf := preamble("ATTM", 0)
		buf = appendSection(buf, "VERS", []byte{0x01})
		buf = append(buf, "GUID"...) // length field and payload missing

		r, err := NewReader(bytes.NewReader(buf))
		require.NoError(t, err)

		secs, err := r.ReadSections()
		require.ErrorIs(t, err, ErrTruncatedHeader)
		require.Len(t, secs, 1)
		assert.Equal(t, domain.TagVERS, secs[0].Tag)
	})
}

func TestReaderReportsFileOffsets(t *testing.T) {
	buf := preamble("ATTM", 0)
	buf = append(buf, 0x01, 0x02) // stray bytes where a section header should be

	r, err := NewReader(bytes.NewReader(buf))
	require.NoError(t, err)

	_, err = r.Next()
	require.ErrorIs(t, err, ErrTruncatedHeader)
	require.ErrorContains(t, err, "0x8")
}
