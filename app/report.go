package app

import (
	"fmt"
	"math"
	"strings"

	"gofestat/domain/stats"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const reportTopPoints = 10

// RenderReport formats a run as Markdown and renders it to HTML
func RenderReport(run *stats.FeRun) (string, []byte) {
	md := ReportMarkdown(run)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return md, markdown.ToHTML([]byte(md), p, renderer)
}

// ReportMarkdown formats a run summary and its loudest sky points
func ReportMarkdown(run *stats.FeRun) string {
	var b strings.Builder
	sum := run.Summary

	fmt.Fprintf(&b, "# Fe-statistic run %s\n\n", run.ID)
	fmt.Fprintf(&b, "- GW frequency: %.4e Hz\n", run.Frequency)
	fmt.Fprintf(&b, "- Pulsars: %d (%s)\n", len(run.PulsarNames), strings.Join(run.PulsarNames, ", "))
	fmt.Fprintf(&b, "- Brave mode: %t\n", run.Brave)
	fmt.Fprintf(&b, "- Input hash: `%s`\n", run.InputHash)
	fmt.Fprintf(&b, "- Computed: %s in %d ms\n\n", run.CreatedAt.Time().Format("2006-01-02 15:04:05 MST"), run.DurationMS)

	b.WriteString("## Sky map\n\n")
	b.WriteString("| Points | Non-finite | Max | Mean | Median | P95 | Std dev | Min |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %s | %s | %s | %s | %s | %s |\n\n",
		sum.Points, sum.NonFinite, num(sum.Max), num(sum.Mean), num(sum.Median), num(sum.P95), num(sum.StdDev), num(sum.Min))

	if sum.ArgMax < 0 {
		b.WriteString("No finite sky point.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Loudest point: theta=%.4f, phi=%.4f (DEC %.2f°, RA %.2f°)\n\n",
		sum.MaxPos.Theta, sum.MaxPos.Phi, sum.MaxPos.Declination()*180/math.Pi, sum.MaxPos.Phi*180/math.Pi)
	fmt.Fprintf(&b, "Single-point false alarm probability: %s (1%% threshold Fe = %s)\n\n",
		num(sum.MaxFAP), num(DetectionThreshold(0.01)))

	b.WriteString("## Loudest points\n\n")
	b.WriteString("| # | Index | Theta | Phi | Fe |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, p := range TopPoints(run, reportTopPoints) {
		fmt.Fprintf(&b, "| %d | %d | %.4f | %.4f | %s |\n", i+1, p.Index, p.Pos.Theta, p.Pos.Phi, num(p.Fe))
	}
	return b.String()
}

func num(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
