package workers

import (
	"context"
	"fmt"

	"github.com/artzaitsev/submission-scheduler/pkg/errtaxonomy"
	"github.com/artzaitsev/submission-scheduler/pkg/notifier"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// DeliverProcessor implements the exports stage: build the candidate-facing
// feedback message from the persisted evaluation and hand it to the
// notification transport, recording the attempt regardless of outcome.
type DeliverProcessor struct {
	repo      work.Repository
	transport notifier.Transport
	channel   string
}

// NewDeliverProcessor builds the deliver stage processor. channel is
// recorded on every DeliveryRecord (e.g. "slack").
func NewDeliverProcessor(repo work.Repository, transport notifier.Transport, channel string) *DeliverProcessor {
	return &DeliverProcessor{repo: repo, transport: transport, channel: channel}
}

// Process implements queue.StageProcessor.
func (p *DeliverProcessor) Process(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
	items, err := p.repo.ListSubmissions(ctx, work.ListQuery{
		SubmissionIDs: []string{claim.SubmissionID},
		Include:       []work.SubmissionFieldGroup{work.FieldGroupCore, work.FieldGroupEvaluation},
		Limit:         1,
	})
	if err != nil || len(items) == 0 {
		return p.recordFailure(ctx, claim.SubmissionID, claim.Attempt, errtaxonomy.CodeArtifactMissing, fmt.Sprintf("load submission for delivery: %v", err))
	}
	evaluation := items[0].Evaluation
	if evaluation == nil {
		return p.recordFailure(ctx, claim.SubmissionID, claim.Attempt, errtaxonomy.CodeArtifactMissing, "no evaluation recorded for submission")
	}

	message := buildFeedbackMessage(evaluation)

	externalID, err := p.transport.SendResultNotification(ctx, claim.SubmissionID, message)
	if err != nil {
		return p.recordFailure(ctx, claim.SubmissionID, claim.Attempt, errtaxonomy.CodeDeliveryTransportFail, err.Error())
	}

	if err := p.repo.PersistDelivery(ctx, work.DeliveryRecord{
		SubmissionID:      claim.SubmissionID,
		Channel:           p.channel,
		Status:            "sent",
		ExternalMessageID: externalID,
		Attempts:          claim.Attempt,
	}); err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("persist delivery: %v", err))
	}

	return work.ProcessOutcome{Success: true, Detail: "result notification delivered"}
}

func (p *DeliverProcessor) recordFailure(ctx context.Context, submissionID string, attempt int, code errtaxonomy.Code, detail string) work.ProcessOutcome {
	if err := p.repo.PersistDelivery(ctx, work.DeliveryRecord{
		SubmissionID:  submissionID,
		Channel:       p.channel,
		Status:        "failed",
		Attempts:      attempt,
		LastErrorCode: string(code),
	}); err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("persist delivery: %v", err))
	}
	return failure(code, detail)
}

// buildFeedbackMessage renders the candidate-facing notification text: a
// score headline plus whatever summary the model's candidate_feedback
// carried, falling back to a generic pointer at the dashboard.
func buildFeedbackMessage(evaluation *work.SubmissionListItemEvaluation) string {
	headline := "Your submission was reviewed."
	if evaluation.Score1To10 != nil {
		headline = fmt.Sprintf("Your submission was reviewed. Score: %d/10.", *evaluation.Score1To10)
	}

	summary := "Review details are available in your dashboard."
	if evaluation.CandidateFeedback != nil {
		if s, ok := evaluation.CandidateFeedback["summary"].(string); ok && s != "" {
			summary = s
		}
	}

	return fmt.Sprintf("%s %s", headline, summary)
}
