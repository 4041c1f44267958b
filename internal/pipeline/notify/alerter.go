package notify

import (
	"context"
	"fmt"

	"visaflow/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Define interfaces for mocking
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Alerter pages operations over SNS when the pipeline hits the dangerous
// partial-failure case: notification sent but state not fully advanced.
type Alerter struct {
	snsClient SNSService
	topicARN  string
	logger    logger.Logger
}

func NewAlerter(snsClient SNSService, topicARN string, log logger.Logger) *Alerter {
	return &Alerter{snsClient: snsClient, topicARN: topicARN, logger: log}
}

// TransitionWriteFailed publishes an operator alert. Best effort: alert
// delivery failures are logged and swallowed.
func (a *Alerter) TransitionWriteFailed(ctx context.Context, applicationID, eventID string, cause error) {
	if a.snsClient == nil || a.topicARN == "" {
		return
	}

	message := fmt.Sprintf(
		"Notification emails were sent for application %s (event %s) but the paid-state write failed: %v. "+
			"The processed marker is being stamped to prevent double notification; the status transition needs manual review.",
		applicationID, eventID, cause)

	_, err := a.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String("Payment pipeline: paid-state write failed after notification"),
		Message:  aws.String(message),
	})
	if err != nil {
		a.logger.WithError(err).Error("operator alert publish failed", map[string]interface{}{
			"applicationId": applicationID,
			"eventId":       eventID,
		})
	}
}
