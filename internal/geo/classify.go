package geo

// Point classification results.
const (
	ClassFlightGeography  = "flight_geography"
	ClassContingency      = "contingency"
	ClassGroundRiskBuffer = "ground_risk_buffer"
	ClassOutside          = "outside"
)

// Classify returns the innermost zone that contains p.
// Rules:
//   - flight_geography: inside the flight geography polygon
//   - contingency: inside the contingency area but not the flight geography
//   - ground_risk_buffer: inside the ground risk buffer only
//   - outside: in none of the zones
//
// zones may be in any order; missing zones are simply not matched.
func Classify(p GeoPoint, zones []Zone) string {
	best := -1
	for _, z := range zones {
		if !PointInPolygon(p, z.Polygon) {
			continue
		}
		if best == -1 || rank(z.Label) < best {
			best = rank(z.Label)
		}
	}
	switch best {
	case rank(FlightGeography):
		return ClassFlightGeography
	case rank(Contingency):
		return ClassContingency
	case rank(GroundRiskBuffer):
		return ClassGroundRiskBuffer
	}
	return ClassOutside
}

// rank orders labels from the inside out.
func rank(l ZoneLabel) int {
	return int(l)
}
