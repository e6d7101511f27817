package shared

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodeTarget struct {
	Kind string `json:"kind" validate:"required,oneof=create_video create_video_batch"`
}

func TestDecodeValid(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"kind":"create_video"}`))

	var target decodeTarget
	require.NoError(t, DecodeValid(req, &target))
	assert.Equal(t, "create_video", target.Kind)
}

func TestDecodeValidMalformedBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"kind":`))

	var target decodeTarget
	err := DecodeValid(req, &target)
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestDecodeValidConstraintFailure(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"kind":"make_coffee"}`))

	var target decodeTarget
	err := DecodeValid(req, &target)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedBody, "constraint failures are not decode failures")
}

func TestDecodeJSONFreeFormMap(t *testing.T) {
	req := httptest.NewRequest("PUT", "/", strings.NewReader(`{"content_topic":"cooking"}`))

	var changes map[string]string
	require.NoError(t, DecodeJSON(req, &changes))
	assert.Equal(t, "cooking", changes["content_topic"])
}
