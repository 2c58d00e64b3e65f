package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewValidationError("check interval must be positive")
	assert.Equal(t, "VALIDATION_ERROR: check interval must be positive", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := NewExternalError("redis", "failed to connect").WithCause(cause)
	assert.Contains(t, wrapped.Error(), "caused by: connection refused")
	assert.Equal(t, cause, stderrors.Unwrap(wrapped))
}

func TestErrorTypeHelpers(t *testing.T) {
	err := NewOfflineError("fetchMetrics")
	assert.True(t, IsType(err, ErrorTypeOffline))
	assert.False(t, IsType(err, ErrorTypeTimeout))
	assert.Equal(t, "OFFLINE", GetCode(err))
	assert.Equal(t, ErrorTypeOffline, GetType(err))

	plain := stderrors.New("boom")
	assert.False(t, IsType(plain, ErrorTypeOffline))
	assert.Equal(t, "UNKNOWN_ERROR", GetCode(plain))
}

func TestDomainConstructors(t *testing.T) {
	probeErr := NewProbeError("network", "request failed")
	assert.True(t, IsType(probeErr, ErrorTypeProbe))
	assert.Equal(t, "network", probeErr.Details["channel"])

	featureErr := NewFeatureDisabledError("report-export", "exports are paused")
	assert.True(t, IsType(featureErr, ErrorTypeFeatureDisabled))
	assert.Equal(t, "report-export", featureErr.Details["feature_id"])

	opErr := NewOperationError("saveAnnotation", stderrors.New("rejected"))
	assert.Equal(t, "OPERATION_FAILED", opErr.Code)
	assert.Equal(t, "saveAnnotation", opErr.Details["operation_type"])
}
