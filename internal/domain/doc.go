// Package domain interprets NEM12 interval metering records and folds them
// into hourly Home Assistant statistics.
//
// # Data Source
//
// NEM12 is the AEMO exchange format for interval meter data. A file is a
// sequence of comma-separated records, each discriminated by its first field
// (the record indicator). Distributors and retailers export these files from
// customer portals; the converter receives one file per run.
//
// # NEM12 Conventions
//
// Record indicators:
//
//	100  header: version, creation time, sender, receiver. Ignored.
//	200  NMI data details: NMI, configuration, register, suffix, stream id,
//	     meter serial, unit of measure, interval length, next read date.
//	300  interval data: date, N interval values, quality method, reason
//	     code, reason description, update time, MSATS load time.
//	400  interval event (quality per interval range). Ignored.
//	500  B2B details. Ignored.
//	900  end of data. Ignored; the trailer is not validated.
//
// Interval length (200 record, field 8):
//
//	Minutes per interval reading: 5, 15 or 30. A day holds 1440/length
//	values (288, 96 or 48). Values outside 1..60 are treated as malformed and
//	the previous length stays in effect; the initial length is 30.
//
// Interval values (300 record, fields 2..):
//
//	Energy in the unit of measure of the 200 record (normally kWh). The value
//	run ends at the first non-numeric field, which is the quality method
//	("A", "E", "S", "V", ...). A numeric quality code would be read as data;
//	producers are assumed not to emit one.
//
// Date format:
//
//	YYYYMMDD in market time, e.g. "20240101". No time-zone or daylight-saving
//	adjustment is applied; hourly timestamps are the calendar date at HH:00.
//
// # Cumulative State
//
// Home Assistant derives consumption from the difference between successive
// "sum" values, so each hourly row carries the running total of all energy
// seen so far in the file. The total is held in a [CumulativeState] owned by
// the caller and is never reset between days or between 200 records.
package domain
