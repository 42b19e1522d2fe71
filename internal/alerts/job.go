package alerts

import (
	"context"

	"frostwatch/internal/types"
)

// RecipientLister enumerates the phone numbers the daily alert goes to.
type RecipientLister interface {
	ListAllPhoneNumbers(ctx context.Context) ([]string, error)
}

// DailyAlertJob is the scheduled entry point: it resolves the current
// recipient list and hands it to the dispatcher.
type DailyAlertJob struct {
	recipients RecipientLister
	dispatcher *Dispatcher
}

// NewDailyAlertJob creates the scheduled daily alert job.
func NewDailyAlertJob(recipients RecipientLister, dispatcher *Dispatcher) *DailyAlertJob {
	return &DailyAlertJob{recipients: recipients, dispatcher: dispatcher}
}

// SendDailyAlert lists recipients and dispatches today's alert. Dispatch
// reports are logged by the dispatcher; only precondition and listing
// failures surface as errors. An empty directory is reported as a
// failure so the skipped alert is visible in the job log.
func (j *DailyAlertJob) SendDailyAlert(ctx context.Context) error {
	phones, err := j.recipients.ListAllPhoneNumbers(ctx)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalStorage,
			"listing alert recipients",
			err,
		)
	}
	_, err = j.dispatcher.DispatchDailyAlert(ctx, phones)
	return err
}
