package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"air-quality-monitor/internal/airquality"
)

var csvHeader = []string{"datetime", "parameter", "value", "unit", "location", "latitude", "longitude"}

// writeCSV renders a clean table as a CSV download named after the city and
// the current date. Missing values and absent coordinates stay empty cells.
func writeCSV(c *fiber.Ctx, city string, table airquality.CleanTable) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range table.Points {
		record := []string{
			formatTime(p.Time),
			p.Parameter,
			formatValue(p.Value),
			p.Unit,
			p.Location,
			"",
			"",
		}
		if p.Coordinates != nil {
			record[5] = strconv.FormatFloat(p.Coordinates.Latitude, 'f', -1, 64)
			record[6] = strconv.FormatFloat(p.Coordinates.Longitude, 'f', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	filename := fmt.Sprintf("air_quality_%s_%s.csv", city, time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
