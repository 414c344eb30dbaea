package nmea

import "strconv"

// Both decoders validate every field before mutating any fix data, so an
// aborted decode leaves the previous sentence's values fully intact.

// decodeRMC decodes a recommended-minimum sentence.
//
// Fields (1-indexed as transmitted):
//
//	1: UTC time (hhmmss.sss)
//	2: status (A=valid)
//	3: latitude (ddmm.mmmm)   4: N/S
//	5: longitude (dddmm.mmmm) 6: E/W
//	7: speed over ground (knots)
//	8: course over ground (deg), may be empty
//	9: date (ddmmyy)
func (p *Parser) decodeRMC() bool {
	f := p.fields
	if len(f) < 10 {
		return false
	}

	ts, ok := parseClock(string(f[1]), p.localOffset)
	if !ok {
		return false
	}
	date, ok := parseDate(string(f[9]))
	if !ok {
		return false
	}

	if string(f[2]) == "A" {
		lat, ok := parseCoordinate(string(f[3]), string(f[4]), 2)
		if !ok {
			return false
		}
		lon, ok := parseCoordinate(string(f[5]), string(f[6]), 3)
		if !ok {
			return false
		}
		knots, err := strconv.ParseFloat(string(f[7]), 64)
		if err != nil {
			return false
		}
		course := 0.0
		if len(f[8]) > 0 {
			course, err = strconv.ParseFloat(string(f[8]), 64)
			if err != nil {
				return false
			}
		}

		p.lat = lat
		p.lon = lon
		p.speed = Speed{Knots: knots, MPH: knots * 1.151, KMH: knots * 1.852}
		p.course = course
		p.fixValid = true
	} else {
		// A void fix clears the position data rather than letting a stale
		// position masquerade as current.
		p.lat = coordinate{hemi: 'N'}
		p.lon = coordinate{hemi: 'W'}
		p.speed = Speed{}
		p.course = 0
		p.fixValid = false
	}

	p.timestamp = ts
	p.date = date
	return true
}

// decodeGGA decodes a fix-data sentence.
//
// Fields (1-indexed as transmitted):
//
//	1: UTC time
//	2: latitude  3: N/S
//	4: longitude 5: E/W
//	6: fix quality (0=no fix)
//	7: satellites in use
//	8: HDOP
//	9: altitude (m)
//	11: geoid height (m)
//
// Timestamp, satellite count, HDOP and fix quality are recorded even for a
// no-fix sentence; position and altitude only when the quality is nonzero.
func (p *Parser) decodeGGA() bool {
	f := p.fields
	if len(f) < 8 {
		return false
	}

	ts, ok := parseClock(string(f[1]), p.localOffset)
	if !ok {
		return false
	}
	sats, err := strconv.Atoi(string(f[7]))
	if err != nil {
		return false
	}
	qual, err := strconv.Atoi(string(f[6]))
	if err != nil {
		return false
	}

	hdop := 0.0
	if len(f) > 8 {
		if v, err := strconv.ParseFloat(string(f[8]), 64); err == nil {
			hdop = v
		}
	}

	if qual != 0 {
		lat, ok := parseCoordinate(string(f[2]), string(f[3]), 2)
		if !ok {
			return false
		}
		lon, ok := parseCoordinate(string(f[4]), string(f[5]), 3)
		if !ok {
			return false
		}

		alt, geoid := 0.0, 0.0
		if len(f) > 11 {
			a, errA := strconv.ParseFloat(string(f[9]), 64)
			g, errG := strconv.ParseFloat(string(f[11]), 64)
			if errA == nil && errG == nil {
				alt, geoid = a, g
			}
		}

		p.lat = lat
		p.lon = lon
		p.altitude = alt
		p.geoid = geoid
	}

	p.timestamp = ts
	p.sats = sats
	p.hdop = hdop
	p.fixQual = qual
	return true
}

// parseClock parses hhmmss[.sss]. An empty string is a receiver that has no
// time yet and yields the zero timestamp.
func parseClock(s string, offsetHours int) (Timestamp, bool) {
	if s == "" {
		return Timestamp{}, true
	}
	if len(s) < 5 {
		return Timestamp{}, false
	}
	hh, err := strconv.Atoi(s[:2])
	if err != nil {
		return Timestamp{}, false
	}
	mm, err := strconv.Atoi(s[2:4])
	if err != nil {
		return Timestamp{}, false
	}
	sec, err := strconv.ParseFloat(s[4:], 64)
	if err != nil {
		return Timestamp{}, false
	}
	hh = ((hh+offsetHours)%24 + 24) % 24
	return Timestamp{Hours: hh, Minutes: mm, Seconds: sec}, true
}

// parseDate parses ddmmyy. An empty string yields the zero date.
func parseDate(s string) (Date, bool) {
	if s == "" {
		return Date{}, true
	}
	if len(s) < 6 {
		return Date{}, false
	}
	day, err := strconv.Atoi(s[:2])
	if err != nil {
		return Date{}, false
	}
	month, err := strconv.Atoi(s[2:4])
	if err != nil {
		return Date{}, false
	}
	year, err := strconv.Atoi(s[4:6])
	if err != nil {
		return Date{}, false
	}
	return Date{Day: day, Month: month, Year: year}, true
}

// parseCoordinate parses ddmm.mmmm (degDigits=2, latitude) or dddmm.mmmm
// (degDigits=3, longitude) plus a hemisphere letter.
func parseCoordinate(v, hemi string, degDigits int) (coordinate, bool) {
	if len(hemi) != 1 || !isHemisphere(hemi[0]) {
		return coordinate{}, false
	}
	if len(v) <= degDigits {
		return coordinate{}, false
	}
	deg, err := strconv.Atoi(v[:degDigits])
	if err != nil {
		return coordinate{}, false
	}
	min, err := strconv.ParseFloat(v[degDigits:], 64)
	if err != nil {
		return coordinate{}, false
	}
	return coordinate{deg: deg, min: min, hemi: hemi[0]}, true
}

func isHemisphere(c byte) bool {
	return c == 'N' || c == 'S' || c == 'E' || c == 'W'
}
