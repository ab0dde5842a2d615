package chart

// Package chart renders dataset and training statistics as PNG images for
// the web UI. Nothing in here affects training; it's inspection only.

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
)

const (
	chartWidth  = 640
	chartHeight = 400
	marginX     = 50
	marginY     = 40
)

// EpochMetrics is one epoch of training history.
type EpochMetrics struct {
	Epoch       int     `json:"epoch"`
	Loss        float64 `json:"loss"`
	Accuracy    float64 `json:"accuracy"`
	ValLoss     float64 `json:"valLoss"`
	ValAccuracy float64 `json:"valAccuracy"`
}

// DistributionChart renders a class-distribution bar chart.
// Classes are drawn in the given order; dist values are percentages.
func DistributionChart(title string, classes []string, dist map[string]float64) ([]byte, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("No classes to chart")
	}
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(title, chartWidth/2, marginY/2, 0.5, 0.5)

	maxPct := 0.0
	for _, class := range classes {
		if dist[class] > maxPct {
			maxPct = dist[class]
		}
	}
	if maxPct == 0 {
		maxPct = 100
	}

	plotW := float64(chartWidth - 2*marginX)
	plotH := float64(chartHeight - 2*marginY)
	slot := plotW / float64(len(classes))
	barW := slot * 0.7

	for i, class := range classes {
		pct := dist[class]
		barH := plotH * pct / maxPct
		x := marginX + float64(i)*slot + (slot-barW)/2
		y := float64(chartHeight-marginY) - barH

		dc.SetRGB(0.25, 0.45, 0.75)
		dc.DrawRectangle(x, y, barW, barH)
		dc.Fill()

		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f%%", pct), x+barW/2, y-10, 0.5, 0.5)
		dc.DrawStringAnchored(class, x+barW/2, float64(chartHeight-marginY)+12, 0.5, 0.5)
	}

	// Baseline
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(1)
	dc.DrawLine(marginX, float64(chartHeight-marginY), float64(chartWidth-marginX), float64(chartHeight-marginY))
	dc.Stroke()

	buf := bytes.Buffer{}
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TrainingCurves renders training/validation loss over epochs.
func TrainingCurves(title string, history []EpochMetrics) ([]byte, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("No training history to chart")
	}
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(title, chartWidth/2, marginY/2, 0.5, 0.5)

	maxLoss := 0.0
	for _, m := range history {
		if m.Loss > maxLoss {
			maxLoss = m.Loss
		}
		if m.ValLoss > maxLoss {
			maxLoss = m.ValLoss
		}
	}
	if maxLoss == 0 {
		maxLoss = 1
	}

	plotW := float64(chartWidth - 2*marginX)
	plotH := float64(chartHeight - 2*marginY)
	xAt := func(i int) float64 {
		if len(history) == 1 {
			return marginX + plotW/2
		}
		return marginX + plotW*float64(i)/float64(len(history)-1)
	}
	yAt := func(loss float64) float64 {
		return float64(chartHeight-marginY) - plotH*loss/maxLoss
	}

	drawSeries := func(value func(EpochMetrics) float64, r, g, b float64) {
		dc.SetRGB(r, g, b)
		dc.SetLineWidth(2)
		for i, m := range history {
			if i == 0 {
				dc.MoveTo(xAt(i), yAt(value(m)))
			} else {
				dc.LineTo(xAt(i), yAt(value(m)))
			}
		}
		dc.Stroke()
	}
	drawSeries(func(m EpochMetrics) float64 { return m.Loss }, 0.25, 0.45, 0.75)
	drawSeries(func(m EpochMetrics) float64 { return m.ValLoss }, 0.85, 0.4, 0.2)

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(1)
	dc.DrawLine(marginX, float64(chartHeight-marginY), float64(chartWidth-marginX), float64(chartHeight-marginY))
	dc.DrawLine(marginX, marginY, marginX, float64(chartHeight-marginY))
	dc.Stroke()

	buf := bytes.Buffer{}
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
