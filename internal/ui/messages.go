package ui

import "wfstui/internal/progress"

// refreshMsg tells the model that new pump output is available.
type refreshMsg struct{}

type resultMsg struct {
	R progress.Result
}
