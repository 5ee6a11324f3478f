package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func TestBuildMessage(t *testing.T) {
	body, err := json.Marshal(domain.MailMessage{
		Type: domain.MailTypeEvolutionFinished,
		To:   "a@example.com",
		Data: domain.EvolutionFinishedMailData{
			JobID:       "job-1",
			ProjectName: "样例项目",
			Makespan:    17,
			LowerBound:  15,
			Generations: 40,
			ScheduleID:  3,
		},
	})
	require.NoError(t, err)

	msg, err := buildMessage("noreply@example.com", body)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "a@example.com")
	assert.Contains(t, buf.String(), "job-1")
}

func TestBuildMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"unknown type", `{"type": "reset_password", "to": "a@example.com", "data": {}}`},
		{"bad recipient", `{"type": "evolution_failed", "to": "not an address", "data": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage("noreply@example.com", []byte(tt.body))
			require.Error(t, err)
		})
	}
}
