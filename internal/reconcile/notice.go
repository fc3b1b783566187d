package reconcile

import "fmt"

// Level grades a notice shown to the operator.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notice reports a skip, fallback or adjustment made during a run.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notices accumulates operator-facing notices in the order they happened.
type Notices []Notice

// Infof appends an informational notice.
func (n *Notices) Infof(format string, args ...any) {
	*n = append(*n, Notice{Level: LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning.
func (n *Notices) Warnf(format string, args ...any) {
	*n = append(*n, Notice{Level: LevelWarning, Message: fmt.Sprintf(format, args...)})
}

// Messages flattens the notices to "level: message" strings.
func (n Notices) Messages() []string {
	out := make([]string, len(n))
	for i, notice := range n {
		out[i] = fmt.Sprintf("%s: %s", notice.Level, notice.Message)
	}
	return out
}
