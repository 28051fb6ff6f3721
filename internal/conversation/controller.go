// Package conversation drives the assistant panel: history loading, sending
// with input lockout, failure recovery and word-by-word reply delivery.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

// State is the controller's position in the send/deliver cycle
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateDelivering       State = "delivering"
	StateFailed           State = "failed"
)

const (
	DefaultDeliveryInterval = 50 * time.Millisecond
	DefaultRequestTimeout   = 30 * time.Second
)

// Send rejections. A rejected Send changes nothing.
var (
	ErrEmptyInput   = errors.New("message is empty")
	ErrNoCredential = errors.New("not signed in")
	ErrBusy         = errors.New("a reply is still in progress")
)

const (
	fallbackErrorMessage = "Failed to send message"
	timeoutErrorMessage  = "The assistant took too long to respond. Please try again."
)

// QuickPrompts are the canned questions offered under the input box
var QuickPrompts = []string{
	"Analyze my portfolio risks",
	"Top performers this week",
	"Rebalancing suggestions",
	"Market outlook",
	"Tax implications",
	"DeFi opportunities",
}

// Backend is the remote owner of the durable conversation
type Backend interface {
	ListMessages(ctx context.Context, token string) ([]models.ConversationMessage, error)
	// SendMessage posts text and returns the full updated history
	SendMessage(ctx context.Context, token, text string) ([]models.ConversationMessage, error)
}

// Session supplies the current credential. ok is false when signed out.
type Session interface {
	Credential() (token string, ok bool)
	Identity() string
}

// Notifier shows an error to the user
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// StaticSession is a Session with a fixed token and identity. An empty token means signed out.
type StaticSession struct {
	Token string
	User  string
}

func (s StaticSession) Credential() (string, bool) { return s.Token, s.Token != "" }

func (s StaticSession) Identity() string { return s.User }

// Deps are the collaborators of a Controller. Backend and Session are required.
type Deps struct {
	Backend   Backend
	Session   Session
	Scheduler Scheduler
	Notifier  Notifier
	Logger    *logging.Logger
}

// View is a read-only snapshot of the panel
type View struct {
	State     State
	Messages  []models.ConversationMessage
	Input     string
	Visible   bool
	LastError string
}

// Option configures a Controller
type Option func(*Controller)

// WithDeliveryInterval sets the pause between revealed words
func WithDeliveryInterval(d time.Duration) Option {
	return func(c *Controller) { c.deliveryInterval = d }
}

// WithRequestTimeout bounds each backend round trip
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) { c.requestTimeout = d }
}

// WithIDGenerator replaces the UUIDv7 generator used for optimistic messages
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// WithClock replaces time.Now
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

// Controller is the state machine of one assistant panel. It owns the
// in-memory message list; observers only ever see copies.
type Controller struct {
	backend   Backend
	session   Session
	scheduler Scheduler
	notifier  Notifier
	logger    *logging.Logger

	deliveryInterval time.Duration
	requestTimeout   time.Duration
	newID            func() string
	now              func() time.Time

	mu               sync.Mutex
	state            State
	messages         []models.ConversationMessage
	input            string
	visible          bool
	lastError        string
	historyRequested bool
	generation       uint64
	observers        map[int]func(View)
	nextObserver     int
	pending          []View

	emitMu sync.Mutex
}

// New creates an idle, hidden controller
func New(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		backend:          deps.Backend,
		session:          deps.Session,
		scheduler:        deps.Scheduler,
		notifier:         deps.Notifier,
		logger:           deps.Logger,
		deliveryInterval: DefaultDeliveryInterval,
		requestTimeout:   DefaultRequestTimeout,
		newID:            func() string { return uuid.Must(uuid.NewV7()).String() },
		now:              time.Now,
		state:            StateIdle,
		messages:         []models.ConversationMessage{},
		observers:        make(map[int]func(View)),
	}
	if c.scheduler == nil {
		c.scheduler = RealScheduler{}
	}
	if c.notifier == nil {
		c.notifier = NotifierFunc(func(string) {})
	}
	if c.logger == nil {
		c.logger = logging.GetGlobalLogger()
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(map[string]interface{}{
		"component": "conversation",
		"user":      c.session.Identity(),
	})
	return c
}

// Subscribe registers fn to receive a View after every change, in order.
// fn runs outside the controller's lock. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// View returns the current snapshot
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Input returns the current input text
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput replaces the input text, e.g. when a quick prompt is picked
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.emitLocked()
	c.mu.Unlock()
	c.flush()
}

// Activate shows the panel. The first activation with a credential
// schedules a single history fetch; a failed fetch is retried on a later
// activation.
func (c *Controller) Activate(ctx context.Context) {
	c.mu.Lock()
	c.visible = true
	token, ok := c.session.Credential()
	fetch := ok && !c.historyRequested
	if fetch {
		c.historyRequested = true
	}
	c.emitLocked()
	c.mu.Unlock()
	c.flush()

	if fetch {
		c.scheduler.Go(func() { c.loadHistory(ctx, token) })
	}
}

// Deactivate hides the panel. Outstanding requests and deliveries keep running.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	c.visible = false
	c.emitLocked()
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) loadHistory(ctx context.Context, token string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout)
	defer cancel()

	history, err := c.backend.ListMessages(rctx, token)

	c.mu.Lock()
	if err != nil {
		c.historyRequested = false
		c.mu.Unlock()
		c.logger.WithError(err).Warn("Failed to load conversation history")
		return
	}
	if len(c.messages) == 0 {
		c.messages = append([]models.ConversationMessage{}, history...)
		c.emitLocked()
	}
	c.mu.Unlock()
	c.flush()
	c.logger.WithField("messages", len(history)).Debug("Conversation history loaded")
}

// Send submits text. It is rejected with ErrBusy unless the controller is
// idle, with ErrNoCredential when signed out and with ErrEmptyInput when
// text is blank. Otherwise the user message is appended, the input cleared
// and the request scheduled. Backend failures are reported through the
// Notifier, not returned.
func (c *Controller) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	token, ok := c.session.Credential()
	if !ok {
		c.mu.Unlock()
		return ErrNoCredential
	}
	if trimmed == "" {
		c.mu.Unlock()
		return ErrEmptyInput
	}

	msg := models.ConversationMessage{
		ID:        c.newID(),
		Role:      types.RoleUser,
		Content:   trimmed,
		Timestamp: c.now().UTC(),
	}
	c.messages = append(c.messages, msg)
	c.input = ""
	c.lastError = ""
	c.generation++
	gen := c.generation
	c.setStateLocked(StateAwaitingResponse)
	c.mu.Unlock()
	c.flush()

	c.scheduler.Go(func() { c.request(ctx, gen, token, trimmed, msg.ID, text) })
	return nil
}

// SendInput sends the current input text
func (c *Controller) SendInput(ctx context.Context) error {
	return c.Send(ctx, c.Input())
}

func (c *Controller) request(ctx context.Context, gen uint64, token, text, optimisticID, original string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.requestTimeout)
	defer cancel()

	history, err := c.backend.SendMessage(rctx, token, text)
	if err != nil {
		c.fail(gen, err, optimisticID, original)
		return
	}
	c.receive(gen, history)
}

func (c *Controller) fail(gen uint64, err error, optimisticID, original string) {
	message := errorMessage(err)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.messages = removeMessage(c.messages, optimisticID)
	c.input = original
	c.lastError = message
	c.setStateLocked(StateFailed)
	c.mu.Unlock()
	c.flush()

	c.logger.WithError(err).Warn("Assistant request failed")
	c.notifier.Notify(message)

	c.mu.Lock()
	if gen == c.generation && c.state == StateFailed {
		c.setStateLocked(StateIdle)
	}
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) receive(gen uint64, history []models.ConversationMessage) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	if len(history) == 0 {
		// nothing authoritative came back; keep what we have
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		c.flush()
		return
	}

	reply := history[len(history)-1]
	if reply.Role != types.RoleAssistant {
		c.messages = append([]models.ConversationMessage{}, history...)
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		c.flush()
		return
	}

	placeholder := reply
	placeholder.Content = ""
	c.messages = append(append([]models.ConversationMessage{}, history[:len(history)-1]...), placeholder)

	words := strings.Fields(reply.Content)
	if len(words) == 0 {
		c.setStateLocked(StateIdle)
		c.mu.Unlock()
		c.flush()
		return
	}
	c.setStateLocked(StateDelivering)
	c.mu.Unlock()
	c.flush()

	c.logger.WithField("words", len(words)).Debug("Delivering assistant reply")
	c.scheduler.After(0, func() { c.reveal(gen, reply.ID, words, 0) })
}

// reveal shows words[:i+1] and schedules the next word
func (c *Controller) reveal(gen uint64, id string, words []string, i int) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateDelivering {
		c.mu.Unlock()
		return
	}
	for j := len(c.messages) - 1; j >= 0; j-- {
		if c.messages[j].ID == id {
			c.messages[j].Content = strings.Join(words[:i+1], " ")
			break
		}
	}
	last := i == len(words)-1
	if last {
		c.setStateLocked(StateIdle)
	} else {
		c.emitLocked()
	}
	c.mu.Unlock()
	c.flush()

	if !last {
		c.scheduler.After(c.deliveryInterval, func() { c.reveal(gen, id, words, i+1) })
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state != s {
		c.logger.WithFields(map[string]interface{}{"from": c.state, "to": s}).Debug("Conversation state changed")
	}
	c.state = s
	c.emitLocked()
}

func (c *Controller) viewLocked() View {
	return View{
		State:     c.state,
		Messages:  append([]models.ConversationMessage{}, c.messages...),
		Input:     c.input,
		Visible:   c.visible,
		LastError: c.lastError,
	}
}

// emitLocked queues a snapshot for observers. Callers must hold mu and call
// flush after releasing it.
func (c *Controller) emitLocked() {
	if len(c.observers) == 0 {
		return
	}
	c.pending = append(c.pending, c.viewLocked())
}

// flush hands queued snapshots to observers in the order they were queued.
// Only one goroutine delivers at a time; a reentrant call from an observer
// leaves its snapshots to the delivering goroutine.
func (c *Controller) flush() {
	for {
		if !c.emitMu.TryLock() {
			return
		}
		for {
			c.mu.Lock()
			views := c.pending
			c.pending = nil
			observers := make([]func(View), 0, len(c.observers))
			for id := 0; id < c.nextObserver; id++ {
				if fn, ok := c.observers[id]; ok {
					observers = append(observers, fn)
				}
			}
			c.mu.Unlock()

			if len(views) == 0 {
				break
			}
			for _, v := range views {
				for _, fn := range observers {
					fn(v)
				}
			}
		}
		c.emitMu.Unlock()

		c.mu.Lock()
		more := len(c.pending) > 0
		c.mu.Unlock()
		if !more {
			return
		}
	}
}

func removeMessage(messages []models.ConversationMessage, id string) []models.ConversationMessage {
	out := make([]models.ConversationMessage, 0, len(messages))
	for _, m := range messages {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func errorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutErrorMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}
