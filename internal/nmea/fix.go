package nmea

import "fmt"

// coordinate is the raw ddmm.mmmm form from the wire. It stays private;
// callers get signed decimal degrees from the accessors so the conversion
// lives in exactly one place.
type coordinate struct {
	deg  int
	min  float64
	hemi byte
}

func (c coordinate) decimal() float64 {
	dec := float64(c.deg) + c.min/60.0
	if c.hemi == 'S' || c.hemi == 'W' {
		dec = -dec
	}
	return dec
}

// Timestamp is a wall-clock time of day, already shifted by the parser's
// local offset.
type Timestamp struct {
	Hours   int
	Minutes int
	Seconds float64
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, int(t.Seconds))
}

// Date is a day/month/two-digit-year triple from RMC.
type Date struct {
	Day   int
	Month int
	Year  int
}

// Speed is ground speed in the three units reports use.
type Speed struct {
	Knots float64
	MPH   float64
	KMH   float64
}

// Fix is a copy of all decoded fix data. RMC and GGA arrive independently,
// so FixValid (RMC status flag) and FixQuality (GGA quality code) are two
// separate signals and may disagree; consumers must not assume otherwise.
type Fix struct {
	Latitude     float64
	Longitude    float64
	Time         Timestamp
	Date         Date
	Speed        Speed
	CourseDeg    float64
	AltitudeM    float64
	GeoidHeightM float64
	Satellites   int
	HDOP         float64
	FixValid     bool
	FixQuality   int
}

// HasFix reports whether the GGA quality code claims any kind of fix
// (GPS, DGPS, ...). The code itself is preserved in FixQuality.
func (f Fix) HasFix() bool {
	return f.FixQuality != 0
}

// Fix returns a copy of the current fix data.
func (p *Parser) Fix() Fix {
	return Fix{
		Latitude:     p.lat.decimal(),
		Longitude:    p.lon.decimal(),
		Time:         p.timestamp,
		Date:         p.date,
		Speed:        p.speed,
		CourseDeg:    p.course,
		AltitudeM:    p.altitude,
		GeoidHeightM: p.geoid,
		Satellites:   p.sats,
		HDOP:         p.hdop,
		FixValid:     p.fixValid,
		FixQuality:   p.fixQual,
	}
}

// Latitude returns the last decoded latitude in signed decimal degrees
// (negative south).
func (p *Parser) Latitude() float64 {
	return p.lat.decimal()
}

// Longitude returns the last decoded longitude in signed decimal degrees
// (negative west).
func (p *Parser) Longitude() float64 {
	return p.lon.decimal()
}

// HasFix reports whether the last GGA sentence carried a nonzero quality code.
func (p *Parser) HasFix() bool {
	return p.fixQual != 0
}
