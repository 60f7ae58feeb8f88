package render

import (
    "bytes"
    "html/template"

    "github.com/iliyamo/harbor-booking/internal/model"
)

const dash = "—"

// summaryTmpl is executed by html/template, so every interpolated value is
// escaped for & < > " and '.
var summaryTmpl = template.Must(template.New("summary").Parse(`
<div class="summary-line"><span class="summary-label">Company</span><span class="summary-value">{{.Company}}</span></div>
<div class="summary-line"><span class="summary-label">Vessel</span><span class="summary-value">{{or .Vessel "` + dash + `"}}</span></div>
<div class="summary-line"><span class="summary-label">Route</span><span class="summary-value">{{.OriginName}} → {{.DestinationName}}</span></div>
<div class="summary-line"><span class="summary-label">Departure Date</span><span class="summary-value">{{or .DepartureDate "` + dash + `"}}</span></div>
<div class="summary-line"><span class="summary-label">Departure Time</span><span class="summary-value">{{or .DepartureTime "` + dash + `"}}</span></div>
<div class="summary-line"><span class="summary-label">Accommodation</span><span class="summary-value">{{or .AccommodationName "` + dash + `"}}</span></div>
<div class="summary-line"><span class="summary-label">Seat Type</span><span class="summary-value">{{or .SeatType "` + dash + `"}}</span></div>
<div class="summary-line"><span class="summary-label">Aircon</span><span class="summary-value">{{if .Aircon}}YES{{else}}NO{{end}}</span></div>
<div class="summary-line"><span class="summary-label">Price</span><span class="summary-value">{{.Price}}</span></div>
`))

type summaryData struct {
    Company           string
    Vessel            string
    OriginName        string
    DestinationName   string
    DepartureDate     string
    DepartureTime     string
    AccommodationName string
    SeatType          string
    Aircon            bool
    Price             string
}

// SummaryHTML renders the summary section body for a selected leg.
func SummaryHTML(leg model.LegSelection, cur Currency) (string, error) {
    var buf bytes.Buffer
    err := summaryTmpl.Execute(&buf, summaryData{
        Company:           leg.Company,
        Vessel:            leg.Vessel,
        OriginName:        leg.OriginName,
        DestinationName:   leg.DestinationName,
        DepartureDate:     leg.DepartureDate,
        DepartureTime:     leg.DepartureTime,
        AccommodationName: leg.AccommodationName,
        SeatType:          leg.SeatType,
        Aircon:            leg.Aircon,
        Price:             cur.Format(leg.Price),
    })
    if err != nil {
        return "", err
    }
    return buf.String(), nil
}

// DefaultPlaceholders are the empty-state bodies of the summary sections.
var DefaultPlaceholders = map[model.Direction]string{
    model.Outbound: `<p class="summary-placeholder">No departure trip selected yet.</p>`,
    model.Return:   `<p class="summary-placeholder">No return trip selected yet.</p>`,
}
