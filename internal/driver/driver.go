// Package driver runs the duplication loop: one worker per configured pair,
// each fetching unseen source messages in order, pushing them through the
// transformer and media relay, and committing the offset only after every
// unit of a message is confirmed delivered.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirrorgram/mirrorgram/internal/offset"
	"github.com/mirrorgram/mirrorgram/internal/relay"
	"github.com/mirrorgram/mirrorgram/internal/retry"
	"github.com/mirrorgram/mirrorgram/internal/transform"
	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// State is a pair worker's position in its cycle.
type State string

// Worker states. There is no terminal state; workers run until the driver's
// context is cancelled.
const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateProcessing State = "processing"
	StateSleeping   State = "sleeping"
)

// Client is the messaging capability the driver consumes. Implementations
// must tolerate concurrent calls from independent pair workers; rate limits
// surface as classified errors, not in-process locking.
type Client interface {
	// History returns messages with IDs strictly greater than sinceID from
	// the source chat/topic, in ascending ID order.
	History(ctx context.Context, from message.ChatLink, sinceID int64, limit int) ([]message.Source, error)

	// SendText delivers a plain text message.
	SendText(ctx context.Context, to message.ChatLink, text string) error

	// SendUpload delivers a re-uploaded attachment with its caption.
	SendUpload(ctx context.Context, to message.ChatLink, up relay.Upload, caption string) error
}

// Fetcher is the media relay capability: download an attachment and hand
// back a local upload plus its release function.
type Fetcher interface {
	Fetch(ctx context.Context, att *message.Attachment) (relay.Upload, func(), error)
}

// Config bounds the duplication loop.
type Config struct {
	// PollInterval is the sleep between cycles. Defaults to 30 s.
	PollInterval time.Duration

	// BatchSize caps the messages fetched per cycle. Defaults to 50.
	BatchSize int

	// Policy is the retry policy applied to every API-calling step.
	Policy retry.Policy
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	return c
}

// Driver owns the per-pair workers. Pairs progress independently; a fatal
// error in one pair's cycle never halts the others.
type Driver struct {
	pairs       []message.Pair
	client      Client
	store       offset.Store
	transformer *transform.Transformer
	relay       Fetcher
	classify    retry.Classifier
	cfg         Config
	logger      *slog.Logger
	tracer      trace.Tracer

	mu     sync.Mutex
	status map[string]*pairState
}

type pairState struct {
	state     State
	offset    int64
	forwarded uint64
	skipped   uint64
	failed    uint64
	lastError string
}

// PairStatus is a point-in-time snapshot of one pair worker, as reported on
// the status endpoint.
type PairStatus struct {
	Pair      string `json:"pair"`
	State     State  `json:"state"`
	Offset    int64  `json:"offset"`
	Forwarded uint64 `json:"forwarded"`
	Skipped   uint64 `json:"skipped"`
	Failed    uint64 `json:"failed"`
	LastError string `json:"last_error,omitempty"`
}

// New creates a Driver over the given pairs and collaborators.
func New(
	pairs []message.Pair,
	client Client,
	store offset.Store,
	transformer *transform.Transformer,
	fetcher Fetcher,
	classify retry.Classifier,
	cfg Config,
	logger *slog.Logger,
) *Driver {
	d := &Driver{
		pairs:       pairs,
		client:      client,
		store:       store,
		transformer: transformer,
		relay:       fetcher,
		classify:    classify,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		tracer:      otel.Tracer("mirrorgram/driver"),
		status:      make(map[string]*pairState, len(pairs)),
	}
	for _, pair := range pairs {
		d.status[pair.String()] = &pairState{state: StateIdle}
	}
	return d
}

// Run starts one worker per pair and blocks until the context is cancelled
// and every worker has finished its in-flight work.
func (d *Driver) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, pair := range d.pairs {
		wg.Add(1)
		go func(pair message.Pair) {
			defer wg.Done()
			d.runPair(ctx, pair)
		}(pair)
	}
	wg.Wait()
}

// runPair is one pair's cycle loop: Idle -> Fetching -> Processing ->
// Sleeping -> Idle, forever.
func (d *Driver) runPair(ctx context.Context, pair message.Pair) {
	log := d.logger.With("pair", pair.String())
	log.Info("pair worker started")

	for {
		if err := d.cycle(ctx, pair, log); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			d.setError(pair, err)
			log.Error("cycle failed", "error", err)
		}

		d.setState(pair, StateSleeping)
		select {
		case <-ctx.Done():
			log.Info("pair worker stopped")
			return
		case <-time.After(d.cfg.PollInterval):
		}
		d.setState(pair, StateIdle)
	}
	log.Info("pair worker stopped")
}

// cycle performs one fetch-and-process pass for the pair.
func (d *Driver) cycle(ctx context.Context, pair message.Pair, log *slog.Logger) error {
	d.setState(pair, StateFetching)

	sinceID, _, err := d.store.Load(ctx, pair)
	if err != nil {
		return err
	}
	d.setOffset(pair, sinceID)

	var batch []message.Source
	err = retry.Do(ctx, d.cfg.Policy, d.classify, func(ctx context.Context) error {
		var ferr error
		batch, ferr = d.client.History(ctx, pair.From, sinceID, d.cfg.BatchSize)
		return ferr
	})
	if err != nil {
		return fmt.Errorf("fetch since %d: %w", sinceID, err)
	}

	if len(batch) == 0 {
		return nil
	}

	d.setState(pair, StateProcessing)
	log.Debug("processing batch", "messages", len(batch), "since", sinceID)

	for _, src := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.forward(ctx, pair, src, log); err != nil {
			// The offset stays put, so this message is reattempted on the
			// next cycle. Later messages in the batch are left untouched to
			// keep them from being delivered ahead of (or twice around) the
			// failed one.
			d.setError(pair, err)
			d.markFailed(pair)
			log.Error("message not forwarded",
				"message_id", src.ID,
				"error", err,
			)
			return nil
		}
	}

	return nil
}

// forward delivers one source message: transform, relay, send every unit in
// order, then commit the offset. An error means nothing was committed and
// the message will be reattempted.
func (d *Driver) forward(ctx context.Context, pair message.Pair, src message.Source, log *slog.Logger) error {
	ctx, span := d.tracer.Start(ctx, "driver.forward",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.Int64("message.id", src.ID),
			attribute.String("message.kind", string(src.Kind)),
		))
	defer span.End()

	if src.Kind == message.KindPoll {
		log.Info("skipping poll message", "message_id", src.ID)
		return d.skip(ctx, pair, src.ID, "poll")
	}

	units := d.transformer.Apply(src)
	if len(units) == 0 {
		log.Info("message emptied by filters", "message_id", src.ID)
		return d.skip(ctx, pair, src.ID, "filtered")
	}

	for _, unit := range units {
		if err := d.sendUnit(ctx, pair, unit, log); err != nil {
			span.SetStatus(codes.Error, "send failed")
			span.RecordError(err)
			return err
		}
	}

	if err := d.store.Commit(ctx, pair, src.ID); err != nil {
		span.SetStatus(codes.Error, "commit failed")
		span.RecordError(err)
		return err
	}

	d.markForwarded(pair, src.ID)
	log.Debug("message forwarded", "message_id", src.ID, "units", len(units))
	return nil
}

// sendUnit delivers a single outbound unit through the retry controller,
// relaying the attachment first when the unit carries one.
func (d *Driver) sendUnit(ctx context.Context, pair message.Pair, unit message.Unit, log *slog.Logger) error {
	if unit.Attachment == nil {
		return retry.Do(ctx, d.cfg.Policy, d.classify, func(ctx context.Context) error {
			return d.client.SendText(ctx, pair.To, unit.Text)
		})
	}

	var (
		up      relay.Upload
		release func()
	)
	err := retry.Do(ctx, d.cfg.Policy, d.classify, func(ctx context.Context) error {
		var ferr error
		up, release, ferr = d.relay.Fetch(ctx, unit.Attachment)
		return ferr
	})
	if errors.Is(err, relay.ErrUnsupportedKind) {
		log.Warn("attachment kind not forwardable, sending text only",
			"kind", unit.Attachment.Kind,
			"file", unit.Attachment.Name(),
		)
		if unit.Text == "" {
			return nil
		}
		return retry.Do(ctx, d.cfg.Policy, d.classify, func(ctx context.Context) error {
			return d.client.SendText(ctx, pair.To, unit.Text)
		})
	}
	if err != nil {
		return err
	}
	defer release()

	recordAttachmentBytes(pair, up.Size)
	return retry.Do(ctx, d.cfg.Policy, d.classify, func(ctx context.Context) error {
		return d.client.SendUpload(ctx, pair.To, up, unit.Text)
	})
}

// skip commits the offset past a message that produced no units. Nothing
// was sent, so there is nothing to retry.
func (d *Driver) skip(ctx context.Context, pair message.Pair, id int64, reason string) error {
	if err := d.store.Commit(ctx, pair, id); err != nil {
		return err
	}
	d.markSkipped(pair, id, reason)
	return nil
}

// Status returns a snapshot of every pair worker.
func (d *Driver) Status() []PairStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	statuses := make([]PairStatus, 0, len(d.pairs))
	for _, pair := range d.pairs {
		st := d.status[pair.String()]
		statuses = append(statuses, PairStatus{
			Pair:      pair.String(),
			State:     st.state,
			Offset:    st.offset,
			Forwarded: st.forwarded,
			Skipped:   st.skipped,
			Failed:    st.failed,
			LastError: st.lastError,
		})
	}
	return statuses
}

func (d *Driver) setState(pair message.Pair, state State) {
	d.mu.Lock()
	d.status[pair.String()].state = state
	d.mu.Unlock()
}

func (d *Driver) setOffset(pair message.Pair, id int64) {
	d.mu.Lock()
	d.status[pair.String()].offset = id
	d.mu.Unlock()
	setOffsetMetric(pair, id)
}

func (d *Driver) setError(pair message.Pair, err error) {
	d.mu.Lock()
	d.status[pair.String()].lastError = err.Error()
	d.mu.Unlock()
}

func (d *Driver) markForwarded(pair message.Pair, id int64) {
	d.mu.Lock()
	st := d.status[pair.String()]
	st.forwarded++
	st.offset = id
	// The pair is progressing again; stop reporting the stale failure.
	st.lastError = ""
	d.mu.Unlock()
	recordForwarded(pair)
	setOffsetMetric(pair, id)
}

func (d *Driver) markSkipped(pair message.Pair, id int64, reason string) {
	d.mu.Lock()
	st := d.status[pair.String()]
	st.skipped++
	st.offset = id
	st.lastError = ""
	d.mu.Unlock()
	recordSkipped(pair, reason)
	setOffsetMetric(pair, id)
}

func (d *Driver) markFailed(pair message.Pair) {
	d.mu.Lock()
	d.status[pair.String()].failed++
	d.mu.Unlock()
	recordFailed(pair)
}
