package ci

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteSummary(t *testing.T) {
	report := &Report{
		Pipeline: "check",
		Channels: []ChannelResult{
			{
				Channel: Channel{Name: "stable"},
				Steps:   []StepResult{{Name: "build"}, {Name: "test"}},
			},
			{
				Channel: Channel{Name: "next", AllowFailure: true},
				Steps:   []StepResult{{Name: "build", ExitCode: 1, Output: "undefined: foo\n"}},
				Err:     errors.New("step build: go build ./... exited with status 1"),
			},
		},
	}

	var buf bytes.Buffer
	WriteSummary(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "check pipeline")
	assert.Contains(t, out, "stable")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "FAIL (allowed)")
	assert.Contains(t, out, "undefined: foo")
	assert.Contains(t, out, "exited with status 1")
}
