package domain

import "fmt"

// Parameter names a LINDAS dimension that can be requested for a station.
type Parameter string

// The closed set of recognized parameters. The order of AllParameters is
// the canonical column order used by the query builder and the CSV store.
const (
	ParamStation          Parameter = "station"
	ParamMeasurementTime  Parameter = "measurementTime"
	ParamDischarge        Parameter = "discharge"
	ParamWaterLevel       Parameter = "waterLevel"
	ParamDangerLevel      Parameter = "dangerLevel"
	ParamWaterTemperature Parameter = "waterTemperature"
	ParamIsLiter          Parameter = "isLiter"
)

// AllParameters lists every recognized parameter in canonical order.
// Identity parameters (station, measurementTime) come first.
var AllParameters = []Parameter{
	ParamStation,
	ParamMeasurementTime,
	ParamDischarge,
	ParamWaterLevel,
	ParamDangerLevel,
	ParamWaterTemperature,
	ParamIsLiter,
}

// ParseParameter validates a parameter name from configuration.
func ParseParameter(name string) (Parameter, error) {
	for _, p := range AllParameters {
		if string(p) == name {
			return p, nil
		}
	}
	return "", &ConfigError{Reason: fmt.Sprintf("unrecognized parameter %q", name)}
}

// PredicateIRI resolves the parameter to its dimension predicate under the
// given base IRI. isLiter predates the dimension namespace and keeps its
// legacy example.com IRI.
func (p Parameter) PredicateIRI(baseIRI string) string {
	if p == ParamIsLiter {
		return "http://example.com/isLiter"
	}
	return baseIRI + "/dimension/" + string(p)
}

// Variable returns the SPARQL variable name the parameter binds to.
func (p Parameter) Variable() string {
	return string(p)
}
