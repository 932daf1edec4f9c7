package application

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
)

// Step names a best-effort part of a workflow.
type Step string

const (
	StepSellerListing           Step = "seller_listing"
	StepBuyerRecord             Step = "buyer_record"
	StepInspectionState         Step = "inspection_state"
	StepInspectionChecklist     Step = "inspection_checklist"
	StepInspectionIssues        Step = "inspection_issues"
	StepInspectionPhotos        Step = "inspection_photos"
	StepInspectionNotifications Step = "inspection_notifications"
	StepNotificationCleanup     Step = "notification_cleanup"
	StepNotificationDispatch    Step = "notification_dispatch"
	StepEventPublish            Step = "event_publish"
)

// Warning records a best-effort step that failed without aborting the workflow.
type Warning struct {
	Step   Step
	Target string
	Err    error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s %s: %v", w.Step, w.Target, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Result describes a completed workflow. A non-empty Warnings means some
// secondary cleanup or notification did not happen.
type Result struct {
	PropertyID           string
	SellerID             string
	BuyerID              string
	InitiatedBy          domain.Role
	NotificationIDs      []string
	RemovedNotifications int
	RemovedPhotos        int
	Warnings             []Warning
}

func (r Result) Partial() bool { return len(r.Warnings) > 0 }

// warnings collects failures from concurrent steps and reports each one to
// the log and metrics as it arrives.
type warnings struct {
	mu         sync.Mutex
	list       []Warning
	log        *slog.Logger
	metrics    Metrics
	propertyID string
}

func (w *warnings) add(step Step, target string, err error) {
	w.log.Warn("best-effort step failed",
		"property_id", w.propertyID, "step", string(step), "target", target, "err", err)
	w.metrics.CleanupWarning(string(step))
	w.mu.Lock()
	w.list = append(w.list, Warning{Step: step, Target: target, Err: err})
	w.mu.Unlock()
}

func (w *warnings) all() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}
