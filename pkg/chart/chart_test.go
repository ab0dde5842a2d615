package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func requireValidPNG(t *testing.T, b []byte) {
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, chartWidth, img.Bounds().Dx())
	require.Equal(t, chartHeight, img.Bounds().Dy())
}

func TestDistributionChart(t *testing.T) {
	png, err := DistributionChart("Training distribution",
		[]string{"cat", "dog", "bird"},
		map[string]float64{"cat": 57.14, "dog": 28.57, "bird": 14.29})
	require.NoError(t, err)
	requireValidPNG(t, png)

	_, err = DistributionChart("empty", nil, nil)
	require.Error(t, err)
}

func TestTrainingCurves(t *testing.T) {
	history := []EpochMetrics{
		{Epoch: 1, Loss: 1.5, ValLoss: 1.6, Accuracy: 0.4, ValAccuracy: 0.38},
		{Epoch: 2, Loss: 1.1, ValLoss: 1.3, Accuracy: 0.55, ValAccuracy: 0.5},
		{Epoch: 3, Loss: 0.8, ValLoss: 1.2, Accuracy: 0.68, ValAccuracy: 0.58},
	}
	png, err := TrainingCurves("Run 1", history)
	require.NoError(t, err)
	requireValidPNG(t, png)

	_, err = TrainingCurves("empty", nil)
	require.Error(t, err)
}
