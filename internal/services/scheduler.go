package services

import (
	"log"
	"sync"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/mail"
)

// SchedulerConfig carries the job intervals and batch sizing
type SchedulerConfig struct {
	AccountID       string
	PollInterval    time.Duration
	RespondInterval time.Duration
	HealthInterval  time.Duration
	SummaryHour     int
	BatchSize       int
}

// Scheduler drives the periodic jobs: mailbox polling, auto-responses,
// the daily summary, and the health check
type Scheduler struct {
	intake    *IntakeService
	responder *AutoResponder
	notifier  *Notifier
	mailbox   mail.Mailbox
	logSvc    *LogService
	cfg       SchedulerConfig

	// providerStatus reports per-provider availability for the health
	// check; nil disables that part of the check
	providerStatus func() map[string]bool

	stopChan chan struct{}
	running  bool
	mu       sync.Mutex

	polling    sync.Mutex // 防止轮询周期重叠
	responding sync.Mutex // 防止响应周期重叠

	// 每个账户独立的水位线，只有整轮成功后才推进
	wmMu       sync.Mutex
	watermarks map[string]time.Time

	lastSummary time.Time
}

// NewScheduler creates a new Scheduler instance
func NewScheduler(intake *IntakeService, responder *AutoResponder, notifier *Notifier, mailbox mail.Mailbox, logSvc *LogService, providerStatus func() map[string]bool, cfg SchedulerConfig) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.RespondInterval <= 0 {
		cfg.RespondInterval = 10 * time.Minute
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Scheduler{
		intake:         intake,
		responder:      responder,
		notifier:       notifier,
		mailbox:        mailbox,
		logSvc:         logSvc,
		cfg:            cfg,
		providerStatus: providerStatus,
		stopChan:       make(chan struct{}),
		watermarks:     make(map[string]time.Time),
	}
}

// Start launches the background jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Printf("[Scheduler] Starting: poll=%v respond=%v health=%v summary_hour=%d",
		s.cfg.PollInterval, s.cfg.RespondInterval, s.cfg.HealthInterval, s.cfg.SummaryHour)

	go s.runLoop(s.cfg.PollInterval, "poll", s.PollCycle)
	go s.runLoop(s.cfg.RespondInterval, "respond", s.RespondCycle)
	go s.runLoop(s.cfg.HealthInterval, "health", s.healthCycle)
	go s.summaryLoop()
}

// Stop stops all background jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.stopChan)
	s.running = false
	log.Println("[Scheduler] Stopped")
}

// runLoop runs a job on a fixed interval until stopped. The first run
// waits 10 seconds so the service is fully ready.
func (s *Scheduler) runLoop(interval time.Duration, name string, job func()) {
	select {
	case <-time.After(10 * time.Second):
		job()
	case <-s.stopChan:
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			job()
		case <-s.stopChan:
			log.Printf("[Scheduler] %s loop stopping", name)
			return
		}
	}
}

// summaryLoop fires the daily summary once per day at the configured hour
func (s *Scheduler) summaryLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			if now.Hour() != s.cfg.SummaryHour {
				continue
			}
			if sameDay(s.lastSummary, now) {
				continue
			}
			s.lastSummary = now
			s.dailySummary(now)
		case <-s.stopChan:
			return
		}
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PollCycle fetches new messages since the watermark, ingests them, and
// dispatches notifications. Overlapping cycles are skipped. The
// watermark only advances after a fully successful cycle, so failures
// make the next cycle re-cover the same window; the dedup index keeps
// that harmless.
func (s *Scheduler) PollCycle() {
	if !s.polling.TryLock() {
		log.Println("[Scheduler] Previous poll still running, skipping this cycle")
		return
	}
	defer s.polling.Unlock()

	if !s.mailbox.IsReady() {
		log.Println("[Scheduler] Mailbox not configured, skipping poll")
		return
	}

	accountID := s.cfg.AccountID
	cycleStart := time.Now()
	since := s.Watermark(accountID)

	raws, err := s.mailbox.FetchAfter(since, s.cfg.BatchSize)
	if err != nil {
		log.Printf("[Scheduler] Fetch failed: %v", err)
		s.logSvc.LogSchedulerCycle("poll", 0, 0, time.Since(cycleStart).Milliseconds(), err)
		return
	}

	processed := s.intake.IngestBatch(accountID, raws)
	for _, msg := range processed {
		// Best effort: the assistant has the message either way
		if err := s.mailbox.MarkRead(msg.ExternalID); err != nil {
			log.Printf("[Scheduler] Failed to mark %s read: %v", msg.ExternalID, err)
		}
	}

	if _, err := s.notifier.Run(accountID, s.cfg.BatchSize); err != nil {
		// 水位线不前移，下个周期重扫窗口，去重吸收重复
		log.Printf("[Scheduler] Notification dispatch failed: %v", err)
		s.logSvc.LogSchedulerCycle("poll", len(raws), len(processed), time.Since(cycleStart).Milliseconds(), err)
		return
	}

	s.advanceWatermark(accountID, cycleStart)
	s.logSvc.LogSchedulerCycle("poll", len(raws), len(processed), time.Since(cycleStart).Milliseconds(), nil)
}

// RespondCycle sends auto-responses for eligible messages
func (s *Scheduler) RespondCycle() {
	if !s.responding.TryLock() {
		log.Println("[Scheduler] Previous respond cycle still running, skipping")
		return
	}
	defer s.responding.Unlock()

	start := time.Now()
	sent, err := s.responder.Run(s.cfg.AccountID, s.cfg.BatchSize)
	s.logSvc.LogSchedulerCycle("respond", 0, sent, time.Since(start).Milliseconds(), err)
	if err != nil {
		log.Printf("[Scheduler] Auto-response cycle failed: %v", err)
	}
}

// dailySummary pushes the digest covering the last 24 hours
func (s *Scheduler) dailySummary(now time.Time) {
	since := now.Add(-24 * time.Hour)
	sent, err := s.notifier.SendDailySummary(s.cfg.AccountID, since)
	if err != nil {
		log.Printf("[Scheduler] Daily summary failed: %v", err)
		return
	}
	if sent {
		log.Println("[Scheduler] Daily summary sent")
	}
}

// healthCycle verifies the mailbox and providers and raises a system
// alert when something is down
func (s *Scheduler) healthCycle() {
	if !s.mailbox.IsReady() {
		log.Println("[Scheduler] Health check: mailbox not configured")
		if _, err := s.notifier.SendSystemAlert(s.cfg.AccountID, "mailbox", "Mailbox is not configured or unreachable"); err != nil {
			log.Printf("[Scheduler] Health alert failed: %v", err)
		}
	}

	if !s.notifier.ChannelConfigured() {
		log.Println("[Scheduler] Health check: push channel not configured")
	}

	if s.providerStatus == nil {
		return
	}
	status := s.providerStatus()
	anyUp := false
	for _, up := range status {
		if up {
			anyUp = true
			break
		}
	}
	if len(status) > 0 && !anyUp {
		log.Println("[Scheduler] Health check: no analysis provider available")
		if _, err := s.notifier.SendSystemAlert(s.cfg.AccountID, "provider", "No analysis provider is available"); err != nil {
			log.Printf("[Scheduler] Health alert failed: %v", err)
		}
	}
}

// TriggerPoll runs a poll cycle immediately
func (s *Scheduler) TriggerPoll() {
	go s.PollCycle()
}

// TriggerAutoResponse runs a respond cycle immediately
func (s *Scheduler) TriggerAutoResponse() {
	go s.RespondCycle()
}

// Watermark returns the fetch cutoff for an account, initialized to one
// hour ago on first use
func (s *Scheduler) Watermark(accountID string) time.Time {
	s.wmMu.Lock()
	defer s.wmMu.Unlock()
	wm, ok := s.watermarks[accountID]
	if !ok {
		wm = time.Now().Add(-time.Hour)
		s.watermarks[accountID] = wm
	}
	return wm
}

// advanceWatermark moves the cutoff forward, never backward
func (s *Scheduler) advanceWatermark(accountID string, to time.Time) {
	s.wmMu.Lock()
	defer s.wmMu.Unlock()
	if current, ok := s.watermarks[accountID]; ok && current.After(to) {
		return
	}
	s.watermarks[accountID] = to
}

// Snapshot describes the scheduler's current state
type Snapshot struct {
	Running         bool                 `json:"running"`
	AccountID       string               `json:"account_id"`
	Watermarks      map[string]time.Time `json:"watermarks"`
	PollInterval    string               `json:"poll_interval"`
	RespondInterval string               `json:"respond_interval"`
	SummaryHour     int                  `json:"summary_hour"`
	BatchSize       int                  `json:"batch_size"`
}

// Snapshot returns the current scheduler state
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.wmMu.Lock()
	wms := make(map[string]time.Time, len(s.watermarks))
	for k, v := range s.watermarks {
		wms[k] = v
	}
	s.wmMu.Unlock()

	return Snapshot{
		Running:         running,
		AccountID:       s.cfg.AccountID,
		Watermarks:      wms,
		PollInterval:    s.cfg.PollInterval.String(),
		RespondInterval: s.cfg.RespondInterval.String(),
		SummaryHour:     s.cfg.SummaryHour,
		BatchSize:       s.cfg.BatchSize,
	}
}
