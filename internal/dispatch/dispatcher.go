package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funlifew/push-notify-api/internal/gateway"
	"github.com/funlifew/push-notify-api/internal/models"
	"github.com/funlifew/push-notify-api/internal/repository"
)

// Gateway is the slice of the relay client the dispatcher needs.
type Gateway interface {
	SendSingle(ctx context.Context, target models.PushTarget, payload models.Payload) error
	SendGroup(ctx context.Context, targets []models.PushTarget, payload models.Payload) (gateway.GroupResult, error)
}

// ScanReport aggregates one due scan for observability.
type ScanReport struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// deliveryOutcome is the reconciled result of one delivery attempt.
type deliveryOutcome struct {
	successCount int
	failureCount int
	entries      []models.DeliveryLedgerEntry
	failure      string
}

// Dispatcher drives due notifications through claim, resolution, delivery and
// reconciliation. All collaborators are injected; the dispatcher holds no
// global state.
type Dispatcher struct {
	schedules repository.ScheduleRepository
	ledger    repository.LedgerRepository
	resolver  *Resolver
	gateway   Gateway
	logger    zerolog.Logger
	now       func() time.Time
}

func NewDispatcher(
	schedules repository.ScheduleRepository,
	ledger repository.LedgerRepository,
	resolver *Resolver,
	gw Gateway,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		schedules: schedules,
		ledger:    ledger,
		resolver:  resolver,
		gateway:   gw,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		now:       time.Now,
	}
}

// RunScan selects every due notification and processes each one
// independently: an error in one row is absorbed, logged and recorded on
// that row, and the scan moves on. Only the due query itself can abort a
// scan.
func (d *Dispatcher) RunScan(ctx context.Context) ScanReport {
	var report ScanReport

	due, err := d.schedules.ListDue(ctx, d.now())
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to select due notifications")
		return report
	}
	if len(due) == 0 {
		return report
	}

	report.Selected = len(due)
	d.logger.Info().Int("count", len(due)).Msg("found due notifications")

	for _, n := range due {
		if err := d.process(ctx, n.ID); err != nil {
			if errors.Is(err, repository.ErrClaimConflict) {
				// Another scan claimed the row between selection and claim.
				report.Skipped++
				continue
			}
			d.logger.Error().Err(err).Str("notification_id", n.ID.String()).Msg("notification dispatch failed")
			report.Failed++
			continue
		}
		report.Sent++
	}

	d.logger.Info().
		Int("selected", report.Selected).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("scan complete")

	return report
}

// SendNow force-dispatches one notification, bypassing the schedule check but
// running the same claim, delivery and reconciliation pipeline.
func (d *Dispatcher) SendNow(ctx context.Context, id uuid.UUID) (models.ScheduledNotification, error) {
	err := d.process(ctx, id)
	n, getErr := d.schedules.GetByID(ctx, id)
	if getErr != nil {
		return models.ScheduledNotification{}, getErr
	}
	return n, err
}

// process runs one notification through the pipeline. The claim is the
// critical-section entry: once it succeeds, every exit path finalizes the row
// as sent or failed.
func (d *Dispatcher) process(ctx context.Context, id uuid.UUID) error {
	claimed, err := d.schedules.Claim(ctx, id)
	if err != nil {
		return err
	}

	logger := d.logger.With().
		Str("notification_id", claimed.ID.String()).
		Int("attempt", claimed.Attempts).
		Logger()

	res, err := d.resolver.Resolve(ctx, claimed)
	if err != nil {
		if errors.Is(err, ErrTargetGone) {
			// Retrying cannot bring the target back.
			if markErr := d.schedules.ExhaustAttempts(ctx, claimed.ID, err.Error()); markErr != nil {
				logger.Error().Err(markErr).Msg("failed to finalize notification")
			}
			return err
		}
		if markErr := d.schedules.MarkFailed(ctx, claimed.ID, err.Error()); markErr != nil {
			logger.Error().Err(markErr).Msg("failed to finalize notification")
		}
		return err
	}

	outcome := d.deliver(ctx, claimed, res, logger)

	if len(outcome.entries) > 0 {
		if err := d.ledger.InsertBatch(ctx, outcome.entries); err != nil {
			// The ledger store being unavailable is a process-level fault;
			// fail the row and surface the error.
			if markErr := d.schedules.MarkFailed(ctx, claimed.ID, "ledger write failed: "+err.Error()); markErr != nil {
				logger.Error().Err(markErr).Msg("failed to finalize notification")
			}
			return err
		}
	}

	if outcome.successCount > 0 {
		if err := d.schedules.MarkSent(ctx, claimed.ID, d.now()); err != nil {
			return err
		}
		logger.Info().
			Int("success", outcome.successCount).
			Int("failed", outcome.failureCount).
			Msg("notification sent")
		return nil
	}

	cause := outcome.failure
	if cause == "" {
		cause = fmt.Sprintf("delivery failed for all %d recipients", outcome.failureCount)
	}
	if err := d.schedules.MarkFailed(ctx, claimed.ID, cause); err != nil {
		return err
	}
	return errors.New(cause)
}

// deliver sends the resolved payload and reconciles the relay's answer into
// ledger entries. Transport errors become zero-success outcomes here; they
// never propagate past the per-notification boundary.
func (d *Dispatcher) deliver(ctx context.Context, n models.ScheduledNotification, res Resolution, logger zerolog.Logger) deliveryOutcome {
	if len(res.Targets) == 0 {
		return deliveryOutcome{failure: "no recipients resolved for notification"}
	}

	if n.Recipient.Kind == models.RecipientSubscription {
		target := res.Targets[0]
		if err := d.gateway.SendSingle(ctx, target, res.Payload); err != nil {
			logger.Warn().Err(err).Str("endpoint", target.Endpoint).Msg("single delivery failed")
			return deliveryOutcome{
				failureCount: 1,
				entries:      []models.DeliveryLedgerEntry{d.entryFor(target, res, false, err.Error())},
				failure:      err.Error(),
			}
		}
		return deliveryOutcome{
			successCount: 1,
			entries:      []models.DeliveryLedgerEntry{d.entryFor(target, res, true, "")},
		}
	}

	result, err := d.gateway.SendGroup(ctx, res.Targets, res.Payload)
	if err != nil {
		logger.Warn().Err(err).Int("recipients", len(res.Targets)).Msg("group delivery failed")
		entries := make([]models.DeliveryLedgerEntry, 0, len(res.Targets))
		for _, t := range res.Targets {
			entries = append(entries, d.entryFor(t, res, false, err.Error()))
		}
		return deliveryOutcome{failureCount: len(res.Targets), entries: entries, failure: err.Error()}
	}

	return d.reconcile(res, result, logger)
}

// reconcile accounts for every resolved endpoint exactly once: relay-reported
// success, relay-reported error, or unresolved (absent from both arrays).
// The endpoint lookup covers only the resolved set, so a stray endpoint in
// the relay's answer is never attributed to an unrelated subscription.
func (d *Dispatcher) reconcile(res Resolution, result gateway.GroupResult, logger zerolog.Logger) deliveryOutcome {
	byEndpoint := make(map[string]models.PushTarget, len(res.Targets))
	for _, t := range res.Targets {
		byEndpoint[t.Endpoint] = t
	}

	verdicts := make(map[string]bool, len(result.Success)+len(result.Error))
	for _, endpoint := range result.Success {
		if _, ok := byEndpoint[endpoint]; !ok {
			logger.Warn().Str("endpoint", endpoint).Msg("relay reported an endpoint outside the resolved set")
			continue
		}
		verdicts[endpoint] = true
	}
	for _, endpoint := range result.Error {
		if _, ok := byEndpoint[endpoint]; !ok {
			logger.Warn().Str("endpoint", endpoint).Msg("relay reported an endpoint outside the resolved set")
			continue
		}
		verdicts[endpoint] = false
	}

	var outcome deliveryOutcome
	for _, t := range res.Targets {
		verdict, reported := verdicts[t.Endpoint]
		switch {
		case reported && verdict:
			outcome.successCount++
			outcome.entries = append(outcome.entries, d.entryFor(t, res, true, ""))
		case reported:
			outcome.failureCount++
			outcome.entries = append(outcome.entries, d.entryFor(t, res, false, "relay reported delivery failure"))
		default:
			logger.Warn().Str("endpoint", t.Endpoint).Msg("endpoint unresolved in relay response")
			outcome.failureCount++
			outcome.entries = append(outcome.entries, d.entryFor(t, res, false, "endpoint unresolved in relay response"))
		}
	}

	if outcome.successCount == 0 {
		outcome.failure = fmt.Sprintf("relay accepted none of %d recipients", len(res.Targets))
	}
	return outcome
}

func (d *Dispatcher) entryFor(target models.PushTarget, res Resolution, success bool, cause string) models.DeliveryLedgerEntry {
	return models.DeliveryLedgerEntry{
		SubscriptionID: target.SubscriptionID,
		TopicID:        res.TopicID,
		TemplateID:     res.TemplateID,
		Title:          res.Payload.Title,
		Body:           res.Payload.Body,
		URL:            res.Payload.URL,
		IconPath:       res.Payload.IconPath,
		Success:        success,
		Error:          cause,
	}
}
