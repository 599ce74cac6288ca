package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"bookingcore/internal/model"
	"bookingcore/internal/service/dispatch"
	"bookingcore/internal/service/render"
	"bookingcore/internal/service/resolve"
	"bookingcore/pkg/metrics"
)

type BookingSource interface {
	ListDueForReminder(ctx context.Context, target, floor time.Time) ([]model.Booking, error)
	ListDueForFollowup(ctx context.Context, target, floor time.Time) ([]model.Booking, error)
	MarkReminderSent(ctx context.Context, bookingID int64) (bool, error)
	MarkFollowupSent(ctx context.Context, bookingID int64) (bool, error)
}

type Resolver interface {
	Resolve(ctx context.Context, tenantID int64, kind model.NotificationKind) (*resolve.Resolved, error)
}

// Config carries the injected scan knobs. Offsets are days relative to today;
// grace bounds how far back the follow-up window reaches so a late-added
// template cannot backfill arbitrarily old bookings.
type Config struct {
	ReminderOffsetDays int
	FollowupOffsetDays int
	LookbackGraceDays  int
	MaxConcurrentSends int
}

// Result aggregates one scheduler invocation.
type Result struct {
	ReminderSent int `json:"reminderSent"`
	FollowupSent int `json:"followupSent"`
	Errors       int `json:"errors"`
}

// Scanner runs the two date-window triggers. Each booking moves
// not-yet-due -> due-and-unsent -> sent through its dedup flag; a failed send
// leaves the flag false so a later scan retries it.
type Scanner struct {
	bookings BookingSource
	resolver Resolver
	mailer   dispatch.Mailer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewScanner(
	bookings BookingSource,
	resolver Resolver,
	mailer dispatch.Mailer,
	cfg Config,
	logger *zap.Logger,
) *Scanner {
	if cfg.MaxConcurrentSends <= 0 {
		cfg.MaxConcurrentSends = 8
	}
	return &Scanner{
		bookings: bookings,
		resolver: resolver,
		mailer:   mailer,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Tests pin "today" with this.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now
	return s
}

// windowTrigger binds one dedup flag to its date window and template kind.
type windowTrigger struct {
	name   string
	kind   model.NotificationKind
	target time.Time
	floor  time.Time
	list   func(ctx context.Context, target, floor time.Time) ([]model.Booking, error)
	mark   func(ctx context.Context, bookingID int64) (bool, error)
}

// Run executes both window triggers. A per-booking failure never fails the
// run; cancelling ctx stops mid-pass with flags reflecting confirmed sends
// only, so a rerun is always safe.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	today := truncateToDay(s.now())

	reminder := windowTrigger{
		name:   "pre_departure_reminder",
		kind:   model.KindPreDepartureReminder,
		target: today.AddDate(0, 0, s.cfg.ReminderOffsetDays),
		floor:  today,
		list:   s.bookings.ListDueForReminder,
		mark:   s.bookings.MarkReminderSent,
	}
	followupTarget := today.AddDate(0, 0, -s.cfg.FollowupOffsetDays)
	followup := windowTrigger{
		name:   "post_return_followup",
		kind:   model.KindPostReturnFollowup,
		target: followupTarget,
		floor:  followupTarget.AddDate(0, 0, -s.cfg.LookbackGraceDays),
		list:   s.bookings.ListDueForFollowup,
		mark:   s.bookings.MarkFollowupSent,
	}

	var result Result

	sent, errCount, err := s.runTrigger(ctx, reminder)
	result.ReminderSent = sent
	result.Errors += errCount
	if err != nil {
		return result, err
	}

	sent, errCount, err = s.runTrigger(ctx, followup)
	result.FollowupSent = sent
	result.Errors += errCount
	if err != nil {
		return result, err
	}

	s.logger.Info("Scan completed",
		zap.Int("reminder_sent", result.ReminderSent),
		zap.Int("followup_sent", result.FollowupSent),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func (s *Scanner) runTrigger(ctx context.Context, trigger windowTrigger) (sent, errCount int, err error) {
	bookings, err := trigger.list(ctx, trigger.target, trigger.floor)
	if err != nil {
		s.logger.Error("Failed to list due bookings",
			zap.String("trigger", trigger.name),
			zap.Error(err),
		)
		return 0, 0, err
	}
	if len(bookings) == 0 {
		return 0, 0, nil
	}

	// One resolver lookup per tenant per scan, not per booking.
	groups, tenantOrder := groupByTenant(bookings)

	for _, tenantID := range tenantOrder {
		if ctx.Err() != nil {
			return sent, errCount, ctx.Err()
		}

		resolved, resolveErr := s.resolver.Resolve(ctx, tenantID, trigger.kind)
		if resolveErr != nil {
			if errors.Is(resolveErr, resolve.ErrNotConfigured) {
				// Whole group skipped, flags untouched: these bookings become
				// eligible again the moment the tenant adds a template.
				s.logger.Debug("Trigger skipped, kind not configured",
					zap.String("trigger", trigger.name),
					zap.Int64("tenant_id", tenantID),
					zap.Int("bookings", len(groups[tenantID])),
				)
				continue
			}
			s.logger.Error("Failed to resolve trigger template",
				zap.String("trigger", trigger.name),
				zap.Int64("tenant_id", tenantID),
				zap.Error(resolveErr),
			)
			errCount += len(groups[tenantID])
			continue
		}

		groupSent, groupErrs := s.dispatchGroup(ctx, trigger, resolved, groups[tenantID])
		sent += groupSent
		errCount += groupErrs
	}

	return sent, errCount, nil
}

// dispatchGroup sends one tenant's due bookings through a bounded worker
// pool. The dedup flag is set only after a confirmed send, and only if still
// false, so overlapping scheduler invocations cannot double-send.
func (s *Scanner) dispatchGroup(ctx context.Context, trigger windowTrigger, resolved *resolve.Resolved, bookings []model.Booking) (sent, errCount int) {
	brandingTokens := render.BrandingTokens(resolved.Branding)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.MaxConcurrentSends)
	)

	for i := range bookings {
		booking := bookings[i]

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return sent, errCount
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			tokens := render.Merge(brandingTokens, render.BookingTokens(&booking))
			content := render.Render(resolved.Template, tokens)

			err := s.mailer.Send(ctx, dispatch.Email{
				To:      booking.CustomerEmail,
				ToName:  booking.CustomerName,
				Kind:    trigger.kind,
				Content: content,
			})
			if err != nil {
				s.logger.Error("Failed to dispatch scheduled notification",
					zap.String("trigger", trigger.name),
					zap.Int64("booking_id", booking.ID),
					zap.Error(err),
				)
				metrics.ScanErrorsTotal.WithLabelValues(trigger.name).Inc()
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}

			flipped, markErr := trigger.mark(ctx, booking.ID)
			if markErr != nil {
				s.logger.Error("Failed to set dedup flag after send",
					zap.String("trigger", trigger.name),
					zap.Int64("booking_id", booking.ID),
					zap.Error(markErr),
				)
				mu.Lock()
				errCount++
				mu.Unlock()
				return
			}
			if !flipped {
				// A concurrent run already claimed this booking.
				return
			}

			metrics.ScanSentTotal.WithLabelValues(trigger.name).Inc()
			mu.Lock()
			sent++
			mu.Unlock()
		}()
	}

	wg.Wait()
	return sent, errCount
}

func groupByTenant(bookings []model.Booking) (map[int64][]model.Booking, []int64) {
	groups := make(map[int64][]model.Booking)
	var order []int64
	for _, b := range bookings {
		if _, ok := groups[b.TenantID]; !ok {
			order = append(order, b.TenantID)
		}
		groups[b.TenantID] = append(groups[b.TenantID], b)
	}
	return groups, order
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
