package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/sample"
	"github.com/portfolio-dashboard/internal/types"
)

// Responder produces the assistant's reply to text given the conversation so far
type Responder interface {
	Reply(ctx context.Context, history []models.ConversationMessage, text string) (string, error)
}

// CannedReplies are the stock analysis replies of the development assistant
var CannedReplies = []string{
	"Based on your portfolio analysis, I can see you have a well-diversified crypto portfolio. Your current allocation shows good risk management.",
	"Your top performers are showing strong momentum. Consider taking some profits if you're looking to rebalance your portfolio.",
	"I notice significant exposure to Ethereum ecosystem tokens. You might want to diversify into other Layer 1 blockchains for better risk distribution.",
	"Your current position shows some unrealized losses. This could be a good opportunity for dollar-cost averaging if you believe in long-term growth.",
	"For tax optimization, consider harvesting losses on underperforming assets. This strategy can help reduce your tax liability.",
}

// CannedResponder rotates through a fixed list of replies
type CannedResponder struct {
	mu      sync.Mutex
	replies []string
	next    int
}

// NewCannedResponder creates a responder over replies, or CannedReplies if none are given
func NewCannedResponder(replies ...string) *CannedResponder {
	if len(replies) == 0 {
		replies = CannedReplies
	}
	return &CannedResponder{replies: append([]string(nil), replies...)}
}

func (r *CannedResponder) Reply(context.Context, []models.ConversationMessage, string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reply := r.replies[r.next%len(r.replies)]
	r.next++
	return reply, nil
}

// AssistantService keeps each user's conversation with the assistant
type AssistantService struct {
	records   RecordStore
	responder Responder
	logger    *logging.Logger
	now       func() time.Time
	newID     func() string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewAssistantService creates an assistant service
func NewAssistantService(records RecordStore, responder Responder, logger *logging.Logger) *AssistantService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &AssistantService{
		records:   records,
		responder: responder,
		logger:    logger.WithField("component", "assistant_service"),
		now:       time.Now,
		newID:     newMessageID,
		locks:     make(map[string]*sync.Mutex),
	}
}

func newMessageID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Messages returns the stored conversation. A user who never talked to the
// assistant gets the greeting.
func (s *AssistantService) Messages(ctx context.Context, user string) ([]models.ConversationMessage, error) {
	msgs, err := s.records.Messages(ctx, user)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load messages", err)
	}
	if msgs == nil {
		return []models.ConversationMessage{sample.GreetingMessage(s.now())}, nil
	}
	return msgs, nil
}

// Send appends the user's text and the assistant's reply to the conversation
// and returns the whole updated conversation.
func (s *AssistantService) Send(ctx context.Context, user, text string) ([]models.ConversationMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewInvalidParameterError("message", "must not be empty")
	}

	lock := s.userLock(user)
	lock.Lock()
	defer lock.Unlock()

	history, err := s.Messages(ctx, user)
	if err != nil {
		return nil, err
	}

	reply, err := s.responder.Reply(ctx, history, text)
	if err != nil {
		return nil, apperrors.NewInternalError("assistant reply failed", err)
	}

	now := s.now().UTC()
	updated := append(append(make([]models.ConversationMessage, 0, len(history)+2), history...),
		models.ConversationMessage{ID: s.newID(), Role: types.RoleUser, Content: text, Timestamp: now},
		models.ConversationMessage{ID: s.newID(), Role: types.RoleAssistant, Content: reply, Timestamp: now},
	)

	if err := s.records.SaveMessages(ctx, user, updated); err != nil {
		return nil, apperrors.NewDatabaseError("save messages", err)
	}

	s.logger.WithFields(map[string]interface{}{"user": user, "messages": len(updated)}).Debug("Conversation updated")
	return updated, nil
}

func (s *AssistantService) userLock(user string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[user]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[user] = lock
	}
	return lock
}
