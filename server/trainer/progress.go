package trainer

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cyclopcam/finetune/server/runsdb"
)

// ParseProgressLine recognizes the trainer's per-epoch progress lines:
//
//	epoch=3 loss=0.8123 acc=0.6810 val_loss=1.1034 val_acc=0.5920
//
// Anything else (framework chatter, warnings) returns false and is logged
// verbatim.
func ParseProgressLine(line string) (runsdb.EpochMetrics, bool) {
	m := runsdb.EpochMetrics{}
	sawEpoch := false
	for _, field := range strings.Fields(strings.TrimSpace(line)) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return runsdb.EpochMetrics{}, false
		}
		switch key {
		case "epoch":
			n, err := strconv.Atoi(value)
			if err != nil {
				return runsdb.EpochMetrics{}, false
			}
			m.Epoch = n
			sawEpoch = true
		case "loss":
			m.Loss = parseFloat(value)
		case "acc":
			m.Accuracy = parseFloat(value)
		case "val_loss":
			m.ValLoss = parseFloat(value)
		case "val_acc":
			m.ValAccuracy = parseFloat(value)
		default:
			return runsdb.EpochMetrics{}, false
		}
	}
	return m, sawEpoch
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// We prefer to return the trainer's stderr over a bare exit code.
func trainerError(err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if _, ok := err.(*exec.ExitError); ok && msg != "" {
		return errors.New(msg)
	}
	return err
}
