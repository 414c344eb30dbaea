package nmea

import "strconv"

// sentenceLimit bounds how many characters a sentence may span before the
// parser gives up on it. The longest supported sentence (GGA) is well under
// this; anything larger means a dropped '$' or line noise.
const sentenceLimit = 90

// SentenceType identifies which sentence kind a completed decode produced.
type SentenceType int

const (
	// TypeNone means no complete sentence was decoded.
	TypeNone SentenceType = iota
	// TypeRMC is the recommended-minimum position/velocity/time sentence.
	TypeRMC
	// TypeGGA is the fix-quality/satellites/altitude sentence.
	TypeGGA
	// TypeUnknown classifies a checksum-clean sentence with no decoder.
	// Such sentences count as clean but leave fix data untouched, so Update
	// reports them as TypeNone; the variant exists to keep the decode
	// dispatch exhaustive.
	TypeUnknown
)

func (t SentenceType) String() string {
	switch t {
	case TypeRMC:
		return "RMC"
	case TypeGGA:
		return "GGA"
	case TypeUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// sentenceTypes maps the talker+type field to a decoder. Both GPS-only (GP)
// and multi-constellation (GN) talker IDs are accepted.
var sentenceTypes = map[string]SentenceType{
	"GPRMC": TypeRMC,
	"GNRMC": TypeRMC,
	"GPGGA": TypeGGA,
	"GNGGA": TypeGGA,
}

// Stats are monotonic sentence counters, returned by value so callers never
// observe a torn read.
type Stats struct {
	CleanSentences uint64
	CRCFailures    uint64
}

// Parser reconstructs NMEA sentences from a character stream and keeps the
// most recently decoded fix data.
//
// A Parser is single-writer: exactly one goroutine may call Update. Readers
// on other goroutines must take a Fix/Stats snapshot under external
// synchronization; field writes within one decode are not atomic.
type Parser struct {
	localOffset int

	sentenceActive bool
	checksumMode   bool
	fields         [][]byte
	checksum       byte
	charCount      int

	stats Stats

	lat       coordinate
	lon       coordinate
	timestamp Timestamp
	date      Date
	speed     Speed
	course    float64
	altitude  float64
	geoid     float64
	sats      int
	hdop      float64
	fixValid  bool
	fixQual   int
}

// NewParser returns a Parser whose decoded hours are shifted by
// localOffsetHours (modulo 24) from the UTC time on the wire.
func NewParser(localOffsetHours int) *Parser {
	return &Parser{
		localOffset: localOffsetHours,
		lat:         coordinate{hemi: 'N'},
		lon:         coordinate{hemi: 'W'},
	}
}

// Update consumes one character from the stream.
//
// It returns the sentence type when this character completed a checksum-valid,
// recognized sentence that decoded successfully, and TypeNone otherwise.
// Characters outside printable ASCII (10..126) are discarded without any
// state change. Update does a constant amount of work and never blocks.
func (p *Parser) Update(c byte) SentenceType {
	if c < 10 || c > 126 {
		return TypeNone
	}
	p.charCount++

	// '$' always wins, even mid-sentence: it is the only resync point after
	// dropped bytes or interleaved garbage.
	if c == '$' {
		p.beginSentence()
		return TypeNone
	}
	if !p.sentenceActive {
		return TypeNone
	}

	// Force-abort a runaway sentence before touching field storage, so no
	// input pattern can grow state past the ceiling.
	if p.charCount > sentenceLimit {
		p.sentenceActive = false
		return TypeNone
	}

	switch c {
	case '*':
		// Everything after this is the transmitted checksum, not payload.
		p.checksumMode = true
		p.fields = append(p.fields, nil)
		return TypeNone
	case ',':
		p.fields = append(p.fields, nil)
	default:
		i := len(p.fields) - 1
		p.fields[i] = append(p.fields[i], c)
		if p.checksumMode && len(p.fields[i]) == 2 {
			want, err := strconv.ParseUint(string(p.fields[i]), 16, 8)
			switch {
			case err != nil:
				// Deformed checksum digits can never match; the sentence
				// lingers until the next '$' or the length ceiling.
			case byte(want) == p.checksum:
				return p.finishSentence()
			default:
				p.stats.CRCFailures++
			}
		}
	}

	// The running XOR covers every character between '$' and '*', the field
	// delimiters included.
	if !p.checksumMode {
		p.checksum ^= c
	}
	return TypeNone
}

func (p *Parser) beginSentence() {
	p.fields = p.fields[:0]
	p.fields = append(p.fields, nil)
	p.checksum = 0
	p.checksumMode = false
	p.charCount = 0
	p.sentenceActive = true
}

func (p *Parser) finishSentence() SentenceType {
	p.stats.CleanSentences++
	p.sentenceActive = false

	t, ok := sentenceTypes[string(p.fields[0])]
	if !ok {
		t = TypeUnknown
	}

	decoded := false
	switch t {
	case TypeRMC:
		decoded = p.decodeRMC()
	case TypeGGA:
		decoded = p.decodeGGA()
	}
	if !decoded {
		return TypeNone
	}
	return t
}

// Stats returns a copy of the sentence counters.
func (p *Parser) Stats() Stats {
	return p.stats
}
