package analysis

import (
	"fmt"
	"log"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"churnetl/pkg/records"
)

// Chart artifact file names.
const (
	ChurnBySegmentPNG = "churn_by_charge_segment.png"
	TotalChargesPNG   = "totalcharges_histogram.png"
	ContractDistPNG   = "contract_type_distribution.png"
)

// renderCharts renders the optional visualizations from the fetched rows.
// Each chart is attempted independently; the first failure is returned so
// the caller can log it, but by then every chart before it is already on
// disk. Rendering failures never affect the tabular artifacts.
func renderCharts(dir string, rows []records.Record) error {
	if err := churnBySegmentChart(dir, rows); err != nil {
		return err
	}
	if err := totalChargesHistogram(dir, rows); err != nil {
		return err
	}
	return contractDistributionChart(dir, rows)
}

// churnBySegmentChart draws the churn rate per monthly-charge segment as a
// bar chart. Requires both the segment and churn columns.
func churnBySegmentChart(dir string, rows []records.Record) error {
	segCol, ok := findColumn(rows, chargeSegmentCandidates)
	if !ok {
		log.Printf("analysis: charge segment column not found; skipping segment chart")
		return nil
	}
	churnCol, ok := findColumn(rows, churnCandidates)
	if !ok {
		log.Printf("analysis: churn column not found; skipping segment chart")
		return nil
	}

	churned := map[string]int{}
	total := map[string]int{}
	for _, rec := range rows {
		g := valueString(rec, segCol)
		total[g]++
		if churnFlag(rec, churnCol) {
			churned[g]++
		}
	}

	labels := sortedKeys(total)
	vals := make(plotter.Values, len(labels))
	for i, g := range labels {
		vals[i] = float64(churned[g]) / float64(total[g]) * 100
	}

	p := plot.New()
	p.Title.Text = "Churn Rate by Monthly Charge Segment"
	p.X.Label.Text = "Monthly Charge Segment"
	p.Y.Label.Text = "Churn Rate (%)"

	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return fmt.Errorf("segment bars: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	return savePlot(p, filepath.Join(dir, ChurnBySegmentPNG))
}

// totalChargesHistogram draws the distribution of total charges over 40 bins,
// missing values excluded.
func totalChargesHistogram(dir string, rows []records.Record) error {
	col, ok := findColumn(rows, totalCandidates)
	if !ok {
		log.Printf("analysis: total charges column not found; skipping histogram")
		return nil
	}

	var vals plotter.Values
	for _, rec := range rows {
		if f, ok := rec.Float(col); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		log.Printf("analysis: no numeric total charges; skipping histogram")
		return nil
	}

	p := plot.New()
	p.Title.Text = "Distribution of TotalCharges"
	p.X.Label.Text = "TotalCharges"

	hist, err := plotter.NewHist(vals, 40)
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(hist)

	return savePlot(p, filepath.Join(dir, TotalChargesPNG))
}

// contractDistributionChart draws the contract-type counts as a bar chart,
// missing values bucketed under MissingLabel.
func contractDistributionChart(dir string, rows []records.Record) error {
	col, ok := findColumn(rows, contractCandidates)
	if !ok {
		log.Printf("analysis: contract column not found; skipping distribution chart")
		return nil
	}

	counts := frequency(rows, col)
	labels := make([]string, len(counts))
	vals := make(plotter.Values, len(counts))
	for i, c := range counts {
		labels[i] = c.Value
		vals[i] = float64(c.Count)
	}

	p := plot.New()
	p.Title.Text = "Contract Type Distribution"
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return fmt.Errorf("contract bars: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	return savePlot(p, filepath.Join(dir, ContractDistPNG))
}

func savePlot(p *plot.Plot, path string) error {
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.Printf("analysis: saved chart %s", path)
	return nil
}
