package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"sabor_menu/internal/domain"
)

// Feedback handles the public contact form and its moderation side.
// Submission is rate-limited process-wide; the form is anonymous, so a
// per-caller limit would be trivial to dodge anyway.
type Feedback struct {
	repo     domain.FeedbackRepository
	notifier domain.Notifier
	limiter  *rate.Limiter
}

func NewFeedback(repo domain.FeedbackRepository, notifier domain.Notifier, perMinute int) *Feedback {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Feedback{
		repo:     repo,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

var ErrRateLimited = domain.Validationf("too many messages, try again later")

func (f *Feedback) Submit(ctx context.Context, name, typ, message string) (domain.FeedbackMessage, error) {
	if message == "" {
		return domain.FeedbackMessage{}, domain.Validationf("message is required")
	}
	if !f.limiter.Allow() {
		return domain.FeedbackMessage{}, ErrRateLimited
	}
	if typ == "" {
		typ = "question"
	}
	m, err := f.repo.CreateFeedback(ctx, domain.FeedbackMessage{Name: name, Type: typ, Message: message})
	if err != nil {
		return domain.FeedbackMessage{}, err
	}
	if f.notifier != nil {
		// Fire and forget: a down notifier must not fail the submission.
		go func(m domain.FeedbackMessage) {
			if err := f.notifier.NotifyFeedback(context.Background(), m); err != nil {
				log.Warn().Err(err).Int64("id", m.ID).Msg("feedback notification failed")
			}
		}(m)
	}
	return m, nil
}

func (f *Feedback) List(ctx context.Context) ([]domain.FeedbackMessage, error) {
	return f.repo.ListFeedback(ctx)
}

func (f *Feedback) MarkRead(ctx context.Context, id int64) (domain.FeedbackMessage, error) {
	return f.repo.MarkFeedbackRead(ctx, id)
}

func (f *Feedback) Delete(ctx context.Context, id int64) error {
	ok, err := f.repo.DeleteFeedback(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
