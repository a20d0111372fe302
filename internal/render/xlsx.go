package render

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/flightzone/internal/geo"
)

// Report describes the spreadsheet written by WriteXLSXReport.
type Report struct {
	Mission  string
	Route    []geo.GeoPoint
	Settings geo.ZoneSettings
	Result   geo.Result
}

// WriteXLSXReport writes a workbook with a Summary sheet (one row per zone,
// plus skipped zones), a Vertices sheet and a Route sheet.
func WriteXLSXReport(path string, rep Report) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "render: xlsx add summary sheet")
	}
	addStrings(summary, "Mission", rep.Mission)
	addStrings(summary, "Generated", time.Now().UTC().Format(time.RFC3339))
	addStrings(summary, "Mode", rep.Result.Mode.String())
	addStrings(summary, "Route length (m)")
	summary.Rows[len(summary.Rows)-1].AddCell().SetFloatWithFormat(geo.PathLength(rep.Route), "0.0")
	addStrings(summary, "Zone", "Label", "Distance (m)", "Vertices", "Area (m²)", "Perimeter (m)", "Status")

	for _, z := range rep.Result.Zones {
		m := Metrics(z)
		row := summary.AddRow()
		row.AddCell().SetString(z.Label.DisplayName())
		row.AddCell().SetString(z.Label.String())
		row.AddCell().SetFloatWithFormat(m.CumulativeDistanceM, "0.0")
		row.AddCell().SetInt(m.Vertices)
		row.AddCell().SetFloatWithFormat(m.AreaM2, "#,##0")
		row.AddCell().SetFloatWithFormat(m.PerimeterM, "#,##0.0")
		row.AddCell().SetString("built")
	}
	for _, s := range rep.Result.Skipped {
		reason := "skipped"
		if s.Reason != nil {
			reason = "skipped: " + s.Reason.Error()
		}
		addStrings(summary, s.Label.DisplayName(), s.Label.String(), "", "", "", "", reason)
	}

	vertices, err := f.AddSheet("Vertices")
	if err != nil {
		return eris.Wrap(err, "render: xlsx add vertices sheet")
	}
	addStrings(vertices, "Label", "Index", "Lat", "Lng")
	for _, z := range rep.Result.Zones {
		for i, p := range z.Polygon {
			row := vertices.AddRow()
			row.AddCell().SetString(z.Label.String())
			row.AddCell().SetInt(i)
			row.AddCell().SetFloat(p.Lat)
			row.AddCell().SetFloat(p.Lng)
		}
	}

	route, err := f.AddSheet("Route")
	if err != nil {
		return eris.Wrap(err, "render: xlsx add route sheet")
	}
	addStrings(route, "Index", "Lat", "Lng")
	for i, p := range rep.Route {
		row := route.AddRow()
		row.AddCell().SetInt(i)
		row.AddCell().SetFloat(p.Lat)
		row.AddCell().SetFloat(p.Lng)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "render: save xlsx %s", path)
	}
	return nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
