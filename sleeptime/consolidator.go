package sleeptime

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/memory"
)

const (
	// consolidationWindow caps how many recent messages one pass considers.
	consolidationWindow = 1000

	// summarizationBatch is how many of the oldest recent messages feed one
	// summary.
	summarizationBatch = 50

	// maxKeywords caps the keywords extracted per summary.
	maxKeywords = 10

	// minKeywordLen is the length a word must exceed to count as a keyword.
	minKeywordLen = 5

	// staleAge is how long a block may go without updates before archival
	// moves it out of context.
	staleAge = time.Hour

	// patternPrefixLen is the length of the lowercased message prefix used
	// to bucket repeated questions.
	patternPrefixLen = 50

	// patternThreshold is how often a prefix must occur to count as a
	// repeated question.
	patternThreshold = 3
)

const (
	summaryLabel  = "conversation_summary"
	patternsLabel = "detected_patterns"
)

// protectedLabels hold durable identity and must never be archived.
var protectedLabels = map[string]bool{
	"persona":      true,
	"organization": true,
	"system":       true,
}

// Config defines tuning parameters for the consolidation loop.
type Config struct {
	// Interval is how often a consolidation pass runs. The first pass runs
	// right after Start; later passes follow at this interval.
	Interval time.Duration

	// MinMessages is the recent message count below which a pass is
	// skipped entirely.
	MinMessages int

	// ContextWarningThreshold is the in-context size in bytes above which
	// the archival step engages.
	ContextWarningThreshold int

	// EnableSummarization toggles the summarization step.
	EnableSummarization bool

	// EnablePatternDetection toggles the pattern detection step.
	EnablePatternDetection bool
}

// DefaultConfig provides the standard consolidation parameters: a pass every
// five minutes, gated on twenty recent messages, with archival engaging at
// three quarters of the default context budget.
var DefaultConfig = Config{
	Interval:                5 * time.Minute,
	MinMessages:             20,
	ContextWarningThreshold: 6000,
	EnableSummarization:     true,
	EnablePatternDetection:  true,
}

// Options configures a Consolidator instance.
type Options struct {
	// Config contains the loop's tuning parameters. Defaults to
	// DefaultConfig.
	Config Config

	// Logger receives pass diagnostics. Defaults to a NoOp logger.
	Logger logging.Logger
}

// Consolidator periodically maintains one agent's memory in the background.
//
// The lifecycle is a two-state machine: Stopped until Start spawns the loop,
// Running until Stop joins it. The loop races its interval timer against the
// stop signal, so Stop preempts the wait instead of sitting out the rest of
// the interval.
//
// Consolidation never mutates memory it does not own: all access goes
// through the AgentMemory API, which carries its own synchronization. Step
// errors are logged and contained; one bad pass cannot kill the loop.
type Consolidator struct {
	agentID core.AgentID
	memory  *memory.AgentMemory
	config  Config
	logger  logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Consolidator for the given agent memory.
//
// The consolidator is created Stopped; call Start to spawn the loop and
// Stop to end it. Callers that Start a consolidator are responsible for
// stopping it again during teardown.
func New(mem *memory.AgentMemory, optFns ...func(o *Options)) *Consolidator {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.Interval <= 0 {
		opts.Config.Interval = DefaultConfig.Interval
	}

	return &Consolidator{
		agentID: mem.AgentID(),
		memory:  mem,
		config:  opts.Config,
		logger:  opts.Logger,
	}
}

// Running reports whether the consolidation loop is active.
func (c *Consolidator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Start spawns the consolidation loop.
//
// The first pass runs immediately; subsequent passes follow at the
// configured interval. Returns ErrAlreadyRunning when the loop is already
// active, so at most one loop exists per instance.
func (c *Consolidator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})

	go c.loop(c.stopCh, c.doneCh)

	c.logger.Info("sleeptime.started agent_id=%s interval=%s", c.agentID, c.config.Interval)

	return nil
}

// Stop signals the loop to shut down and joins it.
//
// Stop preempts the interval wait, so it returns promptly even against a
// long interval; at most it waits for a pass that is already in flight to
// finish. Stopping a consolidator that is not running is a no-op.
func (c *Consolidator) Stop() {
	c.mu.Lock()

	if !c.running {
		c.mu.Unlock()
		return
	}

	c.running = false
	close(c.stopCh)
	doneCh := c.doneCh

	c.mu.Unlock()

	<-doneCh

	c.logger.Info("sleeptime.stopped agent_id=%s", c.agentID)
}

// loop alternates consolidation passes with interval waits until stopped.
// The channels arrive as parameters so a later restart cannot race with a
// loop from a previous generation.
func (c *Consolidator) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		c.consolidate()

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// consolidate performs one pass: archival, summarization and pattern
// detection, each isolated so a failing step cannot abort the others.
func (c *Consolidator) consolidate() {
	recent := c.memory.RecentMessages(consolidationWindow)

	if len(recent) < c.config.MinMessages {
		c.logger.Debug("sleeptime.pass.skip agent_id=%s messages=%d", c.agentID, len(recent))
		return
	}

	if size := c.memory.ContextSize(); size > c.config.ContextWarningThreshold {
		if err := c.archiveStaleBlocks(); err != nil {
			c.logger.Error("sleeptime.archival.error agent_id=%s err=%v", c.agentID, err)
		}
	}

	if c.config.EnableSummarization {
		if err := c.summarize(recent); err != nil {
			c.logger.Error("sleeptime.summarization.error agent_id=%s err=%v", c.agentID, err)
		}
	}

	if c.config.EnablePatternDetection {
		if err := c.detectPatterns(recent); err != nil {
			c.logger.Error("sleeptime.patterns.error agent_id=%s err=%v", c.agentID, err)
		}
	}
}

// archiveStaleBlocks moves in-context blocks that have not been updated for
// over an hour out of context, sparing the protected labels.
func (c *Consolidator) archiveStaleBlocks() error {
	now := time.Now().UTC()

	for _, block := range c.memory.ContextBlocks() {
		if protectedLabels[block.Label] {
			continue
		}

		if now.Sub(block.UpdatedAt) <= staleAge {
			continue
		}

		if err := c.memory.MoveOutOfContext(block.Label); err != nil {
			return fmt.Errorf("archive block %q: %w", block.Label, err)
		}

		c.logger.Debug("sleeptime.archival.moved agent_id=%s label=%s", c.agentID, block.Label)
	}

	return nil
}

// summarize reduces the oldest messages of the recent window to role counts
// and keywords, and appends the result to the conversation summary block.
func (c *Consolidator) summarize(messages []core.MessageEntry) error {
	if len(messages) < summarizationBatch {
		return nil
	}

	batch := messages[:summarizationBatch]

	userMsgs := 0
	assistantMsgs := 0

	for _, msg := range batch {
		switch msg.Role {
		case "user":
			userMsgs++
		case "assistant":
			assistantMsgs++
		}
	}

	keywords := extractKeywords(batch, maxKeywords)

	var summary strings.Builder

	summary.WriteString("Summary of recent conversation:\n")
	fmt.Fprintf(&summary, "- %d user messages, %d assistant responses\n", userMsgs, assistantMsgs)
	fmt.Fprintf(&summary, "- Key topics: %s\n", strings.Join(keywords, ", "))

	if c.memory.HasBlock(summaryLabel) {
		if err := c.memory.AppendToBlock(summaryLabel, summary.String()); err != nil {
			return fmt.Errorf("append summary: %w", err)
		}
	} else {
		c.memory.AddBlock(core.NewMemoryBlockWithDescription(
			summaryLabel,
			"Automatically generated summary of conversation history",
			summary.String(),
		))
	}

	c.logger.Debug("sleeptime.summarization.done agent_id=%s messages=%d keywords=%d", c.agentID, len(batch), len(keywords))

	return nil
}

// extractKeywords collects up to limit unique lowercase words longer than
// five characters, in first-seen order across the messages.
func extractKeywords(messages []core.MessageEntry, limit int) []string {
	keywords := make([]string, 0, limit)
	seen := make(map[string]bool, limit)

	for _, msg := range messages {
		for _, word := range strings.Fields(msg.Content) {
			if len(word) <= minKeywordLen {
				continue
			}

			lower := strings.ToLower(word)
			if seen[lower] || len(keywords) >= limit {
				continue
			}

			seen[lower] = true
			keywords = append(keywords, lower)
		}
	}

	return keywords
}

// detectPatterns buckets user messages by a lowercased prefix and records
// prefixes that repeat often enough in the detected patterns block,
// replacing its previous content.
func (c *Consolidator) detectPatterns(messages []core.MessageEntry) error {
	if len(messages) == 0 {
		return nil
	}

	counts := make(map[string]int)

	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}

		counts[patternKey(msg.Content)]++
	}

	repeated := make([]string, 0, len(counts))

	for pattern, count := range counts {
		if count >= patternThreshold {
			repeated = append(repeated, pattern)
		}
	}

	if len(repeated) == 0 {
		return nil
	}

	sort.Strings(repeated)

	var text strings.Builder

	text.WriteString("Detected repeated questions:")

	for _, pattern := range repeated {
		text.WriteString("\n- " + pattern)
	}

	if c.memory.HasBlock(patternsLabel) {
		if err := c.memory.UpdateBlock(patternsLabel, text.String()); err != nil {
			return fmt.Errorf("update patterns: %w", err)
		}
	} else {
		c.memory.AddBlock(core.NewMemoryBlockWithDescription(
			patternsLabel,
			"Patterns detected in conversation by sleep-time agent",
			text.String(),
		))
	}

	c.logger.Debug("sleeptime.patterns.done agent_id=%s repeated=%d", c.agentID, len(repeated))

	return nil
}

// patternKey reduces message content to its bucketing key: the first fifty
// characters, lowercased.
func patternKey(content string) string {
	runes := []rune(content)
	if len(runes) > patternPrefixLen {
		runes = runes[:patternPrefixLen]
	}

	return strings.ToLower(string(runes))
}
