// Package nmea implements a streaming NMEA 0183 sentence parser.
//
// It is built for a UART that delivers one byte at a time with no framing
// guarantees:
// - Update consumes a single character and never blocks
// - Framing, field splitting and checksum validation are incremental
// - RMC supplies position/velocity/date, GGA supplies fix quality/altitude
// - A snapshot of the decoded fix is available after every accepted sentence
package nmea
