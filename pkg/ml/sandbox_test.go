package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxClassifyIsDeterministic(t *testing.T) {
	s := Sandbox{}
	c1, err := s.Classify(context.Background(), "I want a refund for my order")
	require.NoError(t, err)
	c2, err := s.Classify(context.Background(), "I want a refund for my order")
	require.NoError(t, err)
	assert.Equal(t, c1.Label, c2.Label)
	assert.Equal(t, "refund", c1.Label)
}

func TestSandboxClassifyFallsBackToOther(t *testing.T) {
	s := Sandbox{}
	c, err := s.Classify(context.Background(), "what color is the sky")
	require.NoError(t, err)
	assert.Equal(t, "other", c.Label)
}

func TestSandboxSummarizeTruncates(t *testing.T) {
	s := Sandbox{}
	sum, err := s.Summarize(context.Background(), "irrelevant", 20)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sum.Text), 20)
}

func TestSandboxExtractFieldsReturnsOrderID(t *testing.T) {
	s := Sandbox{}
	fields, err := s.ExtractFields(context.Background(), []byte("fake-doc"), "application/pdf")
	require.NoError(t, err)
	require.NotNil(t, fields.OrderID)
	assert.Equal(t, "A10023", *fields.OrderID)
}
