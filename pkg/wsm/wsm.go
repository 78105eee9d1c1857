/*
Copyright © 2023 Kovalev Pavel kovalev5690@gmail.com

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/package wsm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Pavel7004/goWsmExtract/pkg/domain"
)

var (
	ErrInvalidSignature = errors.New("File is not a WSM container")
	ErrTruncatedHeader  = errors.New("Section header is truncated")
	ErrTruncatedPayload = errors.New("Section payload is truncated")
)

// Signatures a WSM container may open with.
var (
	SignatureATTM = domain.Tag{'A', 'T', 'T', 'M'}
	SignatureSNGM = domain.Tag{'S', 'N', 'G', 'M'}
)

// preambleSize covers the signature and the container size field that sit in
// front of the first section.
const preambleSize = 8

// Scanner walks a stream of concatenated sections: a 4-byte tag, a uint32
// little-endian payload length and exactly that many payload bytes, repeated
// until the stream ends. Scanning proceeds strictly forward; a Scanner cannot
// be rewound or reused.
//
// The format has no section count or index, so the only way to discover its
// structure is this sequential scan.
type Scanner struct {
	r   io.Reader
	off int64
	err error
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: r}
}

// Next returns the next section of the stream. It returns io.EOF once the
// stream is exhausted exactly at a section boundary. Running out of bytes
// anywhere else is not a clean end: Next returns ErrTruncatedHeader when the
// tag or length field is cut short and ErrTruncatedPayload when fewer payload
// bytes remain than the length field declared. After Next has returned an
// error, every further call returns the same error.
func (s *Scanner) Next() (*domain.Section, error) {
	if s.err != nil {
		return nil, s.err
	}

	sec, err := s.read()
	if err != nil {
		s.err = err
		return nil, err
	}
	return sec, nil
}

func (s *Scanner) read() (*domain.Section, error) {
	start := s.off

	var tag domain.Tag
	n, err := io.ReadFull(s.r, tag[:])
	s.off += int64(n)
	if err == io.EOF {
		// No bytes were left for another section. This is the normal
		// end-of-container condition, not corruption.
		return nil, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("section at offset %#x: %w", start, ErrTruncatedHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("section at offset %#x: %w", start, err)
	}

	var length uint32
	if err := binary.Read(s.r, binary.LittleEndian, &length); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("section %q at offset %#x: %w", tag, start, ErrTruncatedHeader)
		}
		return nil, fmt.Errorf("section %q at offset %#x: %w", tag, start, err)
	}
	s.off += 4

	payload := make([]byte, length)
	n, err = io.ReadFull(s.r, payload)
	s.off += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("section %q at offset %#x declares %d payload bytes, %d remain: %w",
			tag, start, length, n, ErrTruncatedPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("section %q at offset %#x: %w", tag, start, err)
	}

	return &domain.Section{Tag: tag, Payload: payload}, nil
}

// Header is the 8-byte preamble every container starts with.
type Header struct {
	Signature domain.Tag
	Size      uint32 // declared container size; recorded but not validated
}

// Reader parses a whole WSM file: the preamble followed by the sections.
type Reader struct {
	hdr Header
	sc  *Scanner
}

// NewReader checks the container preamble of r and positions the reader at
// the first section. A stream that does not begin with one of the known
// signatures is rejected with ErrInvalidSignature.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	var hdr Header
	if _, err := io.ReadFull(br, hdr.Signature[:]); err != nil {
		return nil, ErrInvalidSignature
	}
	if hdr.Signature != SignatureATTM && hdr.Signature != SignatureSNGM {
		return nil, fmt.Errorf("%w: starts with %q", ErrInvalidSignature, hdr.Signature)
	}
	if err := binary.Read(br, binary.LittleEndian, &hdr.Size); err != nil {
		return nil, fmt.Errorf("container size field: %w", ErrTruncatedHeader)
	}

	sc := NewScanner(br)
	sc.off = preambleSize // report offsets relative to the file, not the section area

	return &Reader{hdr: hdr, sc: sc}, nil
}

func (r *Reader) Header() Header {
	return r.hdr
}

// Next returns the next section of the container. See Scanner.Next for the
// end-of-container and truncation behavior.
func (r *Reader) Next() (*domain.Section, error) {
	return r.sc.Next()
}

// ReadSections drains the remaining sections eagerly. On failure it returns
// the sections parsed before the error together with the error itself.
func (r *Reader) ReadSections() ([]*domain.Section, error) {
	secs := make([]*domain.Section, 0, 10)

	for {
		sec, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return secs, nil
			}
			return secs, err
		}
		secs = append(secs, sec)
	}
}
