package domain

import (
	"errors"
	"strings"
)

// Tag is the 4-byte FourCC identifying a section within a WSM container.
// Tags are compared byte for byte: "WAM " and "IMG " carry a literal
// trailing space as their 4th byte.
type Tag [4]byte

// The documented WSM section tags.
var (
	TagVERS = Tag{'V', 'E', 'R', 'S'}
	TagGUID = Tag{'G', 'U', 'I', 'D'}
	TagINST = Tag{'I', 'N', 'S', 'T'}
	TagWAM  = Tag{'W', 'A', 'M', ' '}
	TagIMG  = Tag{'I', 'M', 'G', ' '} // despite the tag, a LAND_*.DAT file, not image data
)

// KnownTags lists the documented tags in the order they are shown to users.
var KnownTags = []Tag{TagVERS, TagGUID, TagINST, TagWAM, TagIMG}

var ErrInvalidTag = errors.New("Tag must be 1 to 4 characters")

// ParseTag builds a Tag from a user supplied name. Surrounding whitespace is
// trimmed, the name uppercased and padded right with spaces to 4 bytes, so
// "wam" becomes 'WAM '. ParseTag does not check the name against KnownTags.
func ParseTag(s string) (Tag, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 0 || len(s) > 4 {
		return Tag{}, ErrInvalidTag
	}

	var t Tag
	copy(t[:], s)
	for i := len(s); i < 4; i++ {
		t[i] = ' '
	}
	return t, nil
}

// String returns the tag bytes with trailing spaces trimmed, which is the
// form used in messages and output filenames.
func (t Tag) String() string {
	return strings.TrimRight(string(t[:]), " ")
}

// Known reports whether t is one of the documented WSM tags.
func (t Tag) Known() bool {
	for _, k := range KnownTags {
		if t == k {
			return true
		}
	}
	return false
}

// Section is a single tag-delimited, length-prefixed chunk of a container.
// Payload holds the chunk's raw bytes exactly as stored in the file.
type Section struct {
	Tag     Tag
	Payload []byte
}
