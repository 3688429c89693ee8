package capability_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainstorm-api/internal/domain/capability"
	domainerrors "brainstorm-api/internal/domain/errors"
	"brainstorm-api/internal/domain/status"
)

func TestResult_JSONKeepsPayloadType(t *testing.T) {
	approved := true
	original := capability.Result{
		Capability: capability.Verification,
		Approved:   &approved,
		Payload:    capability.VerificationPayload{Approved: true, Confidence: 92, Issues: []string{"none"}},
		Duration:   1500 * time.Millisecond,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded capability.Result
	require.NoError(t, json.Unmarshal(data, &decoded))

	payload, ok := decoded.Verification()
	require.True(t, ok, "payload should decode to VerificationPayload, got %T", decoded.Payload)
	assert.Equal(t, 92, payload.Confidence)
	assert.Equal(t, 1500*time.Millisecond, decoded.Duration)
}

func TestResult_ReviewDecodesProposals(t *testing.T) {
	data := []byte(`{"capability":"review","payload":{"proposals":[{"changeType":"create","text":"x","approved":true}]}}`)

	var decoded capability.Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Proposals(), 1)
}

func TestResult_UnknownCapabilityPayload(t *testing.T) {
	var decoded capability.Result
	err := json.Unmarshal([]byte(`{"capability":"mystery","payload":{"x":1}}`), &decoded)
	assert.Error(t, err)
}

func TestErrorResult(t *testing.T) {
	se := domainerrors.NewStepError(domainerrors.ErrCodeTimeout, "capability timed out", status.ErrorSeverityRetryable)
	res := capability.ErrorResult(capability.GapDetection, se)

	assert.True(t, res.Failed())
	assert.Equal(t, "capability timed out", res.Message)
}
