package notify

import (
	"context"
	"errors"
	"testing"

	"visaflow/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

func TestAlerterPublishesTransitionFailure(t *testing.T) {
	var published *sns.PublishInput
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			published = params
			return &sns.PublishOutput{}, nil
		},
	}

	a := NewAlerter(mockSNS, "arn:aws:sns:us-east-1:123456789012:ops-alerts", logger.NewTestLogger(t))
	a.TransitionWriteFailed(context.Background(), "app-1", "evt_1", errors.New("deadline exceeded"))

	require.NotNil(t, published)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:ops-alerts", *published.TopicArn)
	assert.Contains(t, *published.Message, "app-1")
	assert.Contains(t, *published.Message, "evt_1")
	assert.Contains(t, *published.Message, "deadline exceeded")
}

func TestAlerterWithoutTopicIsNoOp(t *testing.T) {
	called := false
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			called = true
			return &sns.PublishOutput{}, nil
		},
	}

	a := NewAlerter(mockSNS, "", logger.NewTestLogger(t))
	a.TransitionWriteFailed(context.Background(), "app-1", "evt_1", errors.New("boom"))
	assert.False(t, called)
}

func TestAlerterSwallowsPublishErrors(t *testing.T) {
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("sns unavailable")
		},
	}

	a := NewAlerter(mockSNS, "arn:aws:sns:us-east-1:123456789012:ops-alerts", logger.NewNoOpLogger())
	// Must not panic or propagate.
	a.TransitionWriteFailed(context.Background(), "app-1", "evt_1", errors.New("boom"))
}
