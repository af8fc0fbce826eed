package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockClassify(t *testing.T) {
	inv := &fakeInvoker{body: `{"content":[{"type":"text","text":"{\"intent\":\"decline\"}"}],"stop_reason":"end_turn"}`}
	client := &BedrockClient{client: inv, modelID: "anthropic.claude-3-haiku"}

	out, err := client.Classify(context.Background(), "no thanks")
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"decline"}`, out)

	require.NotNil(t, inv.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(inv.input.ModelId))

	var sent bedrockRequest
	require.NoError(t, json.Unmarshal(inv.input.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent.AnthropicVersion)
	assert.Equal(t, classifySystemPrompt, sent.System)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "no thanks", sent.Messages[0].Content[0].Text)
}

func TestBedrockExtract_Errors(t *testing.T) {
	client := &BedrockClient{client: &fakeInvoker{err: errors.New("throttled")}}
	_, err := client.Extract(context.Background(), "x")
	assert.ErrorContains(t, err, "throttled")

	client = &BedrockClient{client: &fakeInvoker{body: `{"content":[]}`}}
	_, err = client.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
