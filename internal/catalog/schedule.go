package catalog

import (
	"fmt"
	"time"

	cronlib "github.com/robfig/cron/v3"

	. "github.com/harpou-com/llm-gateway/internal/logging"
)

// startPeriodicRefresh wires the catalog refresh job (C8) into
// robfig/cron/v3's "every" scheduling, reusing the teacher's
// internal/cron scheduler library for the one schedule kind this job
// actually needs. Runs once immediately (spec 4.5: "also once at startup"),
// then on the configured interval.
func startPeriodicRefresh(refresh RefreshFunc, interval time.Duration) (*cronlib.Cron, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	refresh() // startup run

	sched := cronlib.New()
	spec := fmt.Sprintf("@every %s", interval.String())
	_, err := sched.AddFunc(spec, func() {
		L_debug("catalog: periodic refresh tick")
		refresh()
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid refresh interval %q: %w", spec, err)
	}
	sched.Start()
	return sched, nil
}
