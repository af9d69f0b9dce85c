// Package domain models hydrological measurements published on LINDAS,
// the Swiss linked-data platform.
//
// # Data Source
//
// The Federal Office for the Environment (FOEN) publishes near-real-time
// river and lake observations in the named graph
// https://lindas.admin.ch/foen/hydro. Each monitoring station exposes one
// observation resource
//
//	<base>/river/observation/<station code>
//
// whose properties are dimension predicates under <base>/dimension/, one
// per measured quantity (discharge, waterLevel, waterTemperature,
// dangerLevel, measurementTime). The isLiter flag uses the legacy
// http://example.com/isLiter predicate.
//
// # Conventions
//
// Station codes are 1-4 digit numbers assigned by FOEN, e.g. 2044 (Thur)
// or 2112 (Rhein). measurementTime is an xsd:dateTime in RFC 3339 form,
// usually with a Z or a +01:00/+02:00 offset. dangerLevel is the FOEN
// flood danger scale, an integer from 0 to 5. isLiter marks stations that
// report discharge in l/s instead of m³/s.
//
// A measurement is identified by its (station, measurement time) pair:
// the endpoint overwrites the observation resource in place on every
// update, so re-querying yields the same record until the station reports
// a new value. Deduplication against the persisted dataset relies on that
// key; see [Measurement.Key].
package domain
