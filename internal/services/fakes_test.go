package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"supporthub/internal/domain/channel"
	"supporthub/internal/domain/contact"
	"supporthub/internal/domain/conversation"
	"supporthub/internal/domain/inbox"
	"supporthub/internal/domain/message"
	"supporthub/internal/domain/task"
	"supporthub/internal/events"
	"supporthub/internal/platform"
	"supporthub/internal/repository"
	hub_errors "supporthub/pkg/errors"
)

// errTxAborted mimics Postgres SQLSTATE 25P02: once a statement fails
// inside a transaction, every later statement fails until a rollback.
var errTxAborted = errors.New("current transaction is aborted, commands ignored until end of transaction block")

// fakeStore is an in-memory repository.Store. It enforces the same
// uniqueness rules the SQL indexes do so race-handling paths can be
// exercised without a database, and it mirrors Postgres transaction
// abort semantics: a unique violation inside a transaction poisons it
// until a rollback, so only savepoint-wrapped inserts may be retried.
type fakeStore struct {
	mu sync.Mutex

	txDepth   int
	txAborted bool

	channels       map[uuid.UUID]channel.Channel
	inboxes        map[uuid.UUID]inbox.Inbox
	contacts       map[uuid.UUID]contact.Contact
	contactInboxes []contact.ContactInbox
	conversations  []conversation.Conversation
	messages       []message.Message
	attachments    []message.Attachment
	tasks          map[uuid.UUID]task.Task

	// One-shot hooks that run just before an insert's uniqueness check,
	// used to simulate a concurrent writer winning the race.
	beforeCreateContactInbox func(*fakeStore)
	beforeCreateConversation func(*fakeStore)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels: make(map[uuid.UUID]channel.Channel),
		inboxes:  make(map[uuid.UUID]inbox.Inbox),
		contacts: make(map[uuid.UUID]contact.Contact),
		tasks:    make(map[uuid.UUID]task.Task),
	}
}

func (s *fakeStore) Channels() repository.ChannelRepository           { return (*fakeChannels)(s) }
func (s *fakeStore) Inboxes() repository.InboxRepository              { return (*fakeInboxes)(s) }
func (s *fakeStore) Contacts() repository.ContactRepository           { return (*fakeContacts)(s) }
func (s *fakeStore) Conversations() repository.ConversationRepository { return (*fakeConversations)(s) }
func (s *fakeStore) Messages() repository.MessageRepository           { return (*fakeMessages)(s) }
func (s *fakeStore) Tasks() repository.TaskRepository                 { return (*fakeTasks)(s) }

func (s *fakeStore) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	if s.txAborted {
		s.mu.Unlock()
		return errTxAborted
	}
	s.txDepth++
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	s.txDepth--
	if err != nil {
		// Rolling back (to the savepoint, when nested) restores a live
		// transaction.
		s.txAborted = false
	}
	s.mu.Unlock()
	return err
}

// failStmt marks the transaction aborted when one is open. Callers hold
// the lock.
func (s *fakeStore) failStmt(err error) error {
	if s.txDepth > 0 {
		s.txAborted = true
	}
	return err
}

type fakeChannels fakeStore

func (r *fakeChannels) Create(ctx context.Context, c *channel.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[c.ID] = *c
	return nil
}

func (r *fakeChannels) GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return channel.Channel{}, hub_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeChannels) GetByExternalID(ctx context.Context, kind channel.Kind, externalID string) (channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.Kind == kind && c.ExternalID == externalID {
			return c, nil
		}
	}
	return channel.Channel{}, hub_errors.ErrNotFound
}

func (r *fakeChannels) Update(ctx context.Context, c channel.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[c.ID]; !ok {
		return hub_errors.ErrNotFound
	}
	r.channels[c.ID] = c
	return nil
}

func (r *fakeChannels) UpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt, refreshedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return hub_errors.ErrNotFound
	}
	c.AccessToken = sql.NullString{String: token, Valid: true}
	c.TokenExpiresAt = sql.NullTime{Time: expiresAt, Valid: true}
	c.TokenRefreshedAt = sql.NullTime{Time: refreshedAt, Valid: true}
	r.channels[id] = c
	return nil
}

func (r *fakeChannels) SetReauthorizationRequired(ctx context.Context, id uuid.UUID, required bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return hub_errors.ErrNotFound
	}
	c.ReauthorizationRequired = required
	r.channels[id] = c
	return nil
}

type fakeInboxes fakeStore

func (r *fakeInboxes) Create(ctx context.Context, i *inbox.Inbox) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inboxes[i.ID] = *i
	return nil
}

func (r *fakeInboxes) GetByID(ctx context.Context, accountID, id uuid.UUID) (inbox.Inbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.inboxes[id]
	if !ok || i.AccountID != accountID {
		return inbox.Inbox{}, hub_errors.ErrNotFound
	}
	return i, nil
}

func (r *fakeInboxes) GetByChannel(ctx context.Context, kind channel.Kind, channelID uuid.UUID) (inbox.Inbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.inboxes {
		if i.ChannelKind == kind && i.ChannelID == channelID {
			return i, nil
		}
	}
	return inbox.Inbox{}, hub_errors.ErrNotFound
}

type fakeContacts fakeStore

func (r *fakeContacts) Create(ctx context.Context, c *contact.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[c.ID] = *c
	return nil
}

func (r *fakeContacts) GetByID(ctx context.Context, accountID, id uuid.UUID) (contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok || c.AccountID != accountID {
		return contact.Contact{}, hub_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeContacts) Update(ctx context.Context, c contact.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contacts[c.ID]; !ok {
		return hub_errors.ErrNotFound
	}
	r.contacts[c.ID] = c
	return nil
}

func (r *fakeContacts) CreateContactInbox(ctx context.Context, ci *contact.ContactInbox) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeCreateContactInbox != nil {
		hook := r.beforeCreateContactInbox
		r.beforeCreateContactInbox = nil
		hook((*fakeStore)(r))
	}
	for _, existing := range r.contactInboxes {
		if existing.InboxID == ci.InboxID && (existing.SourceID == ci.SourceID || existing.ContactID == ci.ContactID) {
			return hub_errors.ErrAlreadyExists
		}
	}
	r.contactInboxes = append(r.contactInboxes, *ci)
	return nil
}

func (r *fakeContacts) GetContactInboxByID(ctx context.Context, id uuid.UUID) (contact.ContactInbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ci := range r.contactInboxes {
		if ci.ID == id {
			return ci, nil
		}
	}
	return contact.ContactInbox{}, hub_errors.ErrNotFound
}

func (r *fakeContacts) GetContactInboxBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (contact.ContactInbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ci := range r.contactInboxes {
		if ci.InboxID == inboxID && ci.SourceID == sourceID {
			return ci, nil
		}
	}
	return contact.ContactInbox{}, hub_errors.ErrNotFound
}

type fakeConversations fakeStore

func (r *fakeConversations) Create(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txAborted {
		return errTxAborted
	}
	if r.beforeCreateConversation != nil {
		hook := r.beforeCreateConversation
		r.beforeCreateConversation = nil
		hook((*fakeStore)(r))
	}
	for _, existing := range r.conversations {
		if existing.AccountID == c.AccountID && existing.DisplayID == c.DisplayID {
			return (*fakeStore)(r).failStmt(hub_errors.ErrAlreadyExists)
		}
	}
	r.conversations = append(r.conversations, *c)
	return nil
}

func (r *fakeConversations) GetByID(ctx context.Context, accountID, id uuid.UUID) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.ID == id && c.AccountID == accountID {
			return c, nil
		}
	}
	return conversation.Conversation{}, hub_errors.ErrNotFound
}

func (r *fakeConversations) GetByDisplayID(ctx context.Context, accountID uuid.UUID, displayID int64) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.AccountID == accountID && c.DisplayID == displayID {
			return c, nil
		}
	}
	return conversation.Conversation{}, hub_errors.ErrNotFound
}

func (r *fakeConversations) GetLatestForContact(ctx context.Context, accountID, inboxID, contactID uuid.UUID) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txAborted {
		return conversation.Conversation{}, errTxAborted
	}
	for i := len(r.conversations) - 1; i >= 0; i-- {
		c := r.conversations[i]
		if c.AccountID == accountID && c.InboxID == inboxID && c.ContactID == contactID {
			return c, nil
		}
	}
	return conversation.Conversation{}, hub_errors.ErrNotFound
}

func (r *fakeConversations) Update(ctx context.Context, c conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.conversations {
		if existing.ID == c.ID {
			r.conversations[i] = c
			return nil
		}
	}
	return hub_errors.ErrNotFound
}

func (r *fakeConversations) TouchLastActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txAborted {
		return errTxAborted
	}
	for i, existing := range r.conversations {
		if existing.ID == id {
			r.conversations[i].LastActivityAt = at
			return nil
		}
	}
	return hub_errors.ErrNotFound
}

func (r *fakeConversations) NextDisplayID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txAborted {
		return 0, errTxAborted
	}
	var max int64
	for _, c := range r.conversations {
		if c.AccountID == accountID && c.DisplayID > max {
			max = c.DisplayID
		}
	}
	return max + 1, nil
}

type fakeMessages fakeStore

func (r *fakeMessages) Create(ctx context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.txAborted {
		return errTxAborted
	}
	if m.SourceID.Valid {
		for _, existing := range r.messages {
			if existing.InboxID == m.InboxID && existing.SourceID.Valid && existing.SourceID.String == m.SourceID.String {
				return (*fakeStore)(r).failStmt(hub_errors.ErrAlreadyExists)
			}
		}
	}
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeMessages) GetByID(ctx context.Context, accountID, id uuid.UUID) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id && m.AccountID == accountID {
			return m, nil
		}
	}
	return message.Message{}, hub_errors.ErrNotFound
}

func (r *fakeMessages) GetBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.InboxID == inboxID && m.SourceID.Valid && m.SourceID.String == sourceID {
			return m, nil
		}
	}
	return message.Message{}, hub_errors.ErrNotFound
}

func (r *fakeMessages) ExistsBySourceID(ctx context.Context, inboxID uuid.UUID, sourceID string) (bool, error) {
	_, err := r.GetBySourceID(ctx, inboxID, sourceID)
	if err == hub_errors.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *fakeMessages) Update(ctx context.Context, m message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.messages {
		if existing.ID == m.ID {
			r.messages[i] = m
			return nil
		}
	}
	return hub_errors.ErrNotFound
}

func (r *fakeMessages) MarkSent(ctx context.Context, id uuid.UUID, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.messages {
		if existing.ID == id {
			r.messages[i].SourceID = sql.NullString{String: sourceID, Valid: true}
			r.messages[i].Status = message.StatusSent
			return nil
		}
	}
	return hub_errors.ErrNotFound
}

func (r *fakeMessages) MarkFailed(ctx context.Context, id uuid.UUID, externalError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.messages {
		if existing.ID == id {
			r.messages[i].Status = message.StatusFailed
			r.messages[i].ExternalError = sql.NullString{String: externalError, Valid: true}
			return nil
		}
	}
	return hub_errors.ErrNotFound
}

func (r *fakeMessages) UpdateOutgoingStatusUpTo(ctx context.Context, conversationID uuid.UUID, status string, upTo time.Time) (int64, error) {
	prior := map[string][]string{
		message.StatusDelivered: {message.StatusSent},
		message.StatusRead:      {message.StatusSent, message.StatusDelivered},
	}
	eligible := prior[status]

	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for i, m := range r.messages {
		if m.ConversationID != conversationID || m.Type != message.TypeOutgoing || m.CreatedAt.After(upTo) {
			continue
		}
		for _, from := range eligible {
			if m.Status == from {
				r.messages[i].Status = status
				updated++
				break
			}
		}
	}
	return updated, nil
}

func (r *fakeMessages) CreateAttachment(ctx context.Context, a *message.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments = append(r.attachments, *a)
	return nil
}

func (r *fakeMessages) GetAttachments(ctx context.Context, messageID uuid.UUID) ([]message.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Attachment
	for _, a := range r.attachments {
		if a.MessageID == messageID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeTasks fakeStore

func (r *fakeTasks) Enqueue(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTasks) GetPending(ctx context.Context, limit int) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []task.Task
	for _, t := range r.tasks {
		if t.Status == task.StatusPending && !t.ScheduledAt.After(time.Now()) {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeTasks) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return hub_errors.ErrNotFound
	}
	if t.Status != task.StatusPending {
		return hub_errors.ErrConflict
	}
	t.Status = task.StatusProcessing
	r.tasks[id] = t
	return nil
}

func (r *fakeTasks) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(id, task.StatusCompleted, "")
}

func (r *fakeTasks) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(id, task.StatusFailed, reason)
}

func (r *fakeTasks) setStatus(id uuid.UUID, status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return hub_errors.ErrNotFound
	}
	t.Status = status
	if reason != "" {
		t.LastError = sql.NullString{String: reason, Valid: true}
	}
	r.tasks[id] = t
	return nil
}

func (r *fakeTasks) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return hub_errors.ErrNotFound
	}
	t.RetryCount++
	t.Status = task.StatusPending
	r.tasks[id] = t
	return nil
}

// fakeGuard is an in-memory InFlightStore.
type fakeGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{inFlight: make(map[string]bool)}
}

func (g *fakeGuard) key(inboxID uuid.UUID, sourceID string) string {
	return inboxID.String() + ":" + sourceID
}

func (g *fakeGuard) MarkInFlight(ctx context.Context, inboxID uuid.UUID, sourceID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := g.key(inboxID, sourceID)
	if g.inFlight[k] {
		return false, nil
	}
	g.inFlight[k] = true
	return true, nil
}

func (g *fakeGuard) ClearInFlight(ctx context.Context, inboxID uuid.UUID, sourceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, g.key(inboxID, sourceID))
	return nil
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) byType(t events.Type) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// stubProfileAPI serves scripted profile lookups.
type stubProfileAPI struct {
	mu    sync.Mutex
	fn    func(call int, accessToken, externalID string) (platform.Profile, error)
	calls int
}

func (s *stubProfileAPI) FetchProfile(ctx context.Context, accessToken, externalID string) (platform.Profile, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	fn := s.fn
	s.mu.Unlock()
	if fn == nil {
		return platform.Profile{}, &platform.APIError{Code: platform.CodeUserNotFound}
	}
	return fn(call, accessToken, externalID)
}

type sentCall struct {
	Kind        string // "text" or "attachment"
	RecipientID string
	Text        string
	FileType    string
	URL         string
}

// stubSendAPI records sends and serves scripted results.
type stubSendAPI struct {
	mu       sync.Mutex
	calls    []sentCall
	textFn   func(recipientID, text string) (platform.SendResult, error)
	attachFn func(recipientID, fileType, url string) (platform.SendResult, error)
}

func (s *stubSendAPI) SendText(ctx context.Context, accessToken, recipientID, text string) (platform.SendResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sentCall{Kind: "text", RecipientID: recipientID, Text: text})
	fn := s.textFn
	s.mu.Unlock()
	if fn == nil {
		return platform.SendResult{MessageID: "mid.text"}, nil
	}
	return fn(recipientID, text)
}

func (s *stubSendAPI) SendAttachment(ctx context.Context, accessToken, recipientID, fileType, url string) (platform.SendResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sentCall{Kind: "attachment", RecipientID: recipientID, FileType: fileType, URL: url})
	fn := s.attachFn
	s.mu.Unlock()
	if fn == nil {
		return platform.SendResult{MessageID: "mid.attachment"}, nil
	}
	return fn(recipientID, fileType, url)
}

// stubOAuthAPI serves scripted token exchanges.
type stubOAuthAPI struct {
	exchangeFn func(code, redirectURI string) (platform.Token, error)
	longFn     func(shortLived string) (platform.Token, error)
	refreshFn  func(current string) (platform.Token, error)

	exchangeCalls int
	longCalls     int
	refreshCalls  int
}

func (s *stubOAuthAPI) ExchangeCode(ctx context.Context, code, redirectURI string) (platform.Token, error) {
	s.exchangeCalls++
	if s.exchangeFn == nil {
		return platform.Token{AccessToken: "short-lived", ExpiresIn: 3600}, nil
	}
	return s.exchangeFn(code, redirectURI)
}

func (s *stubOAuthAPI) ExchangeLongLived(ctx context.Context, shortLived string) (platform.Token, error) {
	s.longCalls++
	if s.longFn == nil {
		return platform.Token{AccessToken: "long-lived", ExpiresIn: 60 * 24 * 3600}, nil
	}
	return s.longFn(shortLived)
}

func (s *stubOAuthAPI) RefreshToken(ctx context.Context, current string) (platform.Token, error) {
	s.refreshCalls++
	if s.refreshFn == nil {
		return platform.Token{AccessToken: "refreshed", ExpiresIn: 60 * 24 * 3600}, nil
	}
	return s.refreshFn(current)
}

// stubBlobStore keeps uploaded blobs in memory.
type stubBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{blobs: make(map[string][]byte)}
}

func (s *stubBlobStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *stubBlobStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}
