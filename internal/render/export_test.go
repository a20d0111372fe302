package render

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/flightzone/internal/geo"
)

func TestWriteShapefile_RoundTrip(t *testing.T) {
	zones := testZones(t)
	zones = append(zones, geo.Zone{Label: geo.Contingency, Polygon: []geo.GeoPoint{{Lat: 1, Lng: 1}}})
	path := filepath.Join(t.TempDir(), "zones")

	n, err := WriteShapefile(path, zones)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.FileExists(t, path+".shp")
	assert.FileExists(t, path+".dbf")
	assert.NoFileExists(t, path+"dbf")

	rings, labels, err := ReadShapefile(path + ".shp")
	require.NoError(t, err)
	require.Len(t, rings, 3)
	assert.Equal(t, []string{"ground_risk_buffer", "contingency", "flight_geography"}, labels)
	assert.Len(t, rings[2], len(zones[2].Polygon))
	assert.InDelta(t, geo.PlanarArea(zones[0].Polygon), geo.PlanarArea(rings[0]), 1e-6*geo.PlanarArea(zones[0].Polygon))
}

func TestShapeRing_Clockwise(t *testing.T) {
	ccw := []geo.GeoPoint{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}}
	pts := shapeRing(ccw)
	require.Len(t, pts, 5)
	assert.Equal(t, pts[0], pts[4])

	var area2 float64
	for i := 0; i < len(pts)-1; i++ {
		area2 += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	assert.Negative(t, area2)
}

func TestReadShapefile_Missing(t *testing.T) {
	_, _, err := ReadShapefile(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestWriteXLSXReport(t *testing.T) {
	settings := geo.ZoneSettings{FlightGeographyM: 20, ContingencyM: 30, GroundRiskM: 50, Mode: geo.ModeCorridor}
	res := geo.Compose(testRoute, settings)
	res.Skipped = append(res.Skipped, geo.Skip{Label: geo.Contingency, Reason: geo.ErrDegenerateGeometry})
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, WriteXLSXReport(path, Report{
		Mission:  "Harbour survey",
		Route:    testRoute,
		Settings: settings,
		Result:   res,
	}))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	summary := f.Sheet["Summary"]
	require.NotNil(t, summary)
	assert.Equal(t, "Harbour survey", summary.Rows[0].Cells[1].String())
	assert.Equal(t, "corridor", summary.Rows[2].Cells[1].String())
	// 4 header rows, the column header, 3 zones and 1 skip.
	assert.Len(t, summary.Rows, 9)
	assert.Equal(t, "ground_risk_buffer", summary.Rows[5].Cells[1].String())
	assert.Contains(t, summary.Rows[8].Cells[6].String(), "skipped")

	vertices := f.Sheet["Vertices"]
	total := 1
	for _, z := range res.Zones {
		total += len(z.Polygon)
	}
	assert.Len(t, vertices.Rows, total)

	assert.Len(t, f.Sheet["Route"].Rows, len(testRoute)+1)
}
