package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	contracts "bookingcore/contracts/mq"
	"bookingcore/internal/model"
	"bookingcore/internal/service/dispatch"
	"bookingcore/internal/service/render"
	"bookingcore/internal/service/resolve"
)

type Resolver interface {
	Resolve(ctx context.Context, tenantID int64, kind model.NotificationKind) (*resolve.Resolved, error)
}

type TaskStore interface {
	InsertTask(ctx context.Context, t *model.InternalTask) error
}

type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Actions bundles the built-in action executors. Sends go through the same
// resolver and mailer as the rest of the pipeline so automation rules respect
// per-tenant templates and branding.
type Actions struct {
	resolver  Resolver
	mailer    dispatch.Mailer
	tasks     TaskStore
	publisher Publisher
	logger    *zap.Logger
}

func NewActions(resolver Resolver, mailer dispatch.Mailer, tasks TaskStore, publisher Publisher, logger *zap.Logger) *Actions {
	return &Actions{
		resolver:  resolver,
		mailer:    mailer,
		tasks:     tasks,
		publisher: publisher,
		logger:    logger,
	}
}

// Register wires all built-in action kinds into the engine.
func (a *Actions) Register(engine *Engine) {
	engine.RegisterAction("send_template", a.SendTemplate)
	engine.RegisterAction("send_series", a.SendSeries)
	engine.RegisterAction("create_task", a.CreateTask)
	engine.RegisterAction("notify_staff", a.NotifyStaff)
}

// SendTemplate sends one notification kind (config "kind") to every match. A
// tenant without that kind configured is skipped, not failed.
func (a *Actions) SendTemplate(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
	kind := model.NotificationKind(rule.ActionConfig["kind"])
	if kind == "" {
		return 0, errors.New(`action config is missing "kind"`)
	}
	return a.sendKinds(ctx, matches, []model.NotificationKind{kind})
}

// SendSeries sends an ordered list of kinds (config "kinds", comma-separated)
// to every match.
func (a *Actions) SendSeries(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
	kinds := parseKinds(rule.ActionConfig["kinds"])
	if len(kinds) == 0 {
		return 0, errors.New(`action config is missing "kinds"`)
	}
	return a.sendKinds(ctx, matches, kinds)
}

func (a *Actions) sendKinds(ctx context.Context, matches []Match, kinds []model.NotificationKind) (int, error) {
	var (
		acted    int
		failures []string
	)

	for _, match := range matches {
		if match.Email == "" {
			continue
		}

		sent := false
		for _, kind := range kinds {
			resolved, err := a.resolver.Resolve(ctx, match.TenantID, kind)
			if err != nil {
				if errors.Is(err, resolve.ErrNotConfigured) {
					continue
				}
				failures = append(failures, fmt.Sprintf("tenant %d kind %s: %s", match.TenantID, kind, err))
				continue
			}

			tokens := render.Merge(render.BrandingTokens(resolved.Branding), match.Tokens)
			content := render.Render(resolved.Template, tokens)

			err = a.mailer.Send(ctx, dispatch.Email{
				To:      match.Email,
				ToName:  match.Name,
				Kind:    kind,
				Content: content,
			})
			if err != nil {
				failures = append(failures, fmt.Sprintf("tenant %d kind %s: %s", match.TenantID, kind, err))
				continue
			}
			sent = true
		}
		if sent {
			acted++
		}
	}

	if len(failures) > 0 {
		return acted, errors.New(strings.Join(failures, "; "))
	}
	return acted, nil
}

// CreateTask opens one internal task per match. Title and details (config
// "title", "details") support the same {{token}} substitution as templates.
func (a *Actions) CreateTask(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
	title := rule.ActionConfig["title"]
	if title == "" {
		return 0, errors.New(`action config is missing "title"`)
	}
	details := rule.ActionConfig["details"]

	var (
		acted    int
		failures []string
	)
	for _, match := range matches {
		task := &model.InternalTask{
			TenantID: match.TenantID,
			Title:    render.Substitute(title, match.Tokens),
			Details:  render.Substitute(details, match.Tokens),
		}
		if err := a.tasks.InsertTask(ctx, task); err != nil {
			failures = append(failures, fmt.Sprintf("tenant %d: %s", match.TenantID, err))
			continue
		}
		acted++
	}

	if len(failures) > 0 {
		return acted, errors.New(strings.Join(failures, "; "))
	}
	return acted, nil
}

// NotifyStaff publishes one in-app notification per match; the worker turns
// it into a Notification row. The match entity id scopes the worker-side
// dedup so a rerun never duplicates the alert.
func (a *Actions) NotifyStaff(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
	title := rule.ActionConfig["title"]
	if title == "" {
		title = rule.Name
	}

	var (
		acted    int
		failures []string
	)
	for _, match := range matches {
		payload := contracts.NotificationCreatedPayload{
			TenantID:    match.TenantID,
			Kind:        rule.TriggerType,
			Title:       render.Substitute(title, match.Tokens),
			Description: render.Substitute(rule.ActionConfig["description"], match.Tokens),
			Link:        rule.ActionConfig["link"],
			DedupID:     match.EntityID,
		}
		if err := a.publisher.Publish("notification.created", payload); err != nil {
			failures = append(failures, fmt.Sprintf("tenant %d: %s", match.TenantID, err))
			continue
		}
		acted++
	}

	if len(failures) > 0 {
		return acted, errors.New(strings.Join(failures, "; "))
	}
	return acted, nil
}

func parseKinds(raw string) []model.NotificationKind {
	var kinds []model.NotificationKind
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kinds = append(kinds, model.NotificationKind(part))
	}
	return kinds
}
