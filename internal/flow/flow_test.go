package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"filmgate/internal/content"
	"filmgate/internal/domain"
	"filmgate/internal/storage"
)

// In-memory doubles mirroring the persistence contracts.

type memUsers struct {
	nextID  int64
	byChat  map[int64]*domain.User
	actions *memActions
}

func (m *memUsers) ByChatID(_ context.Context, chatID int64) (domain.User, error) {
	if u, ok := m.byChat[chatID]; ok {
		return *u, nil
	}
	return domain.User{}, storage.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, chatID int64, fullName string) (domain.User, error) {
	u := &domain.User{ID: m.nextID, ChatID: chatID, FullName: fullName}
	m.nextID++
	m.byChat[chatID] = u
	m.actions.state[u.ID] = domain.ActionNone
	return *u, nil
}

func (m *memUsers) Promote(_ context.Context, chatID int64) (domain.User, error) {
	u, ok := m.byChat[chatID]
	if !ok {
		return domain.User{}, storage.ErrNotFound
	}
	u.IsAdmin = true
	return *u, nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	return len(m.byChat), nil
}

func (m *memUsers) NonAdmins(context.Context) ([]domain.User, error) {
	return m.list(false), nil
}

func (m *memUsers) Admins(context.Context) ([]domain.User, error) {
	return m.list(true), nil
}

func (m *memUsers) list(admin bool) []domain.User {
	var out []domain.User
	for id := int64(1); id < m.nextID; id++ {
		for _, u := range m.byChat {
			if u.ID == id && u.IsAdmin == admin {
				out = append(out, *u)
			}
		}
	}
	return out
}

type memActions struct {
	state map[int64]domain.PendingAction
}

func (m *memActions) Get(_ context.Context, userID int64) (domain.PendingAction, error) {
	a, ok := m.state[userID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return a, nil
}

func (m *memActions) Set(_ context.Context, userID int64, action domain.PendingAction) error {
	if _, ok := m.state[userID]; !ok {
		return storage.ErrNotFound
	}
	m.state[userID] = action
	return nil
}

func (m *memActions) Clear(ctx context.Context, userID int64) error {
	return m.Set(ctx, userID, domain.ActionNone)
}

type memChannels struct {
	created []domain.Channel
}

func (m *memChannels) Create(_ context.Context, username, title string, chatID int64) (domain.Channel, error) {
	ch := domain.Channel{ID: int64(len(m.created) + 1), Username: username, Title: title, ChatID: chatID, IsActive: true}
	m.created = append(m.created, ch)
	return ch, nil
}

type fakeGate struct {
	unmet []domain.Channel
	err   error
}

func (g *fakeGate) Unmet(context.Context, int64) ([]domain.Channel, error) {
	return g.unmet, g.err
}

type fakeContent struct {
	nextID    int64
	open      map[int64]*domain.Film
	keyed     map[string][]domain.Film
	attachErr error
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		nextID: 1,
		open:   make(map[int64]*domain.Film),
		keyed:  make(map[string][]domain.Film),
	}
}

func (f *fakeContent) RegisterIncomplete(_ context.Context, userID int64, origin domain.Origin) (domain.Film, error) {
	film := domain.Film{ID: f.nextID, Origin: origin, IsActive: true}
	f.nextID++
	f.open[userID] = &film
	return film, nil
}

func (f *fakeContent) AttachKey(_ context.Context, filmID int64, key string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	for _, film := range f.open {
		if film.ID == filmID {
			film.Key = &key
			f.keyed[key] = append(f.keyed[key], *film)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeContent) Resolve(_ context.Context, key string) ([]domain.Film, error) {
	return f.keyed[strings.TrimSpace(key)], nil
}

func (f *fakeContent) OpenRegistrationFor(_ context.Context, userID int64) (*domain.Film, error) {
	film, ok := f.open[userID]
	if !ok || film.Key != nil {
		return nil, nil
	}
	cp := *film
	return &cp, nil
}

func (f *fakeContent) CloseRegistration(_ context.Context, userID int64) error {
	delete(f.open, userID)
	return nil
}

type sentText struct {
	chatID int64
	text   string
}

type promptEdit struct {
	chatID    int64
	messageID int
	channels  []domain.Channel
}

type copiedMsg struct {
	to     int64
	origin domain.Origin
}

type fakeMessenger struct {
	texts   []sentText
	menus   []int64
	prompts []int64
	edits   []promptEdit
	copies  []copiedMsg

	copyErr    map[int64]error
	resolve    func(username string) (int64, string, error)
	resolveErr error
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.texts = append(m.texts, sentText{chatID, text})
	return nil
}

func (m *fakeMessenger) SendAdminMenu(_ context.Context, chatID int64) error {
	m.menus = append(m.menus, chatID)
	return nil
}

func (m *fakeMessenger) SendJoinPrompt(_ context.Context, chatID int64, _ []domain.Channel) error {
	m.prompts = append(m.prompts, chatID)
	return nil
}

func (m *fakeMessenger) EditJoinPrompt(_ context.Context, chatID int64, messageID int, channels []domain.Channel) error {
	m.edits = append(m.edits, promptEdit{chatID, messageID, channels})
	return nil
}

func (m *fakeMessenger) CopyMessage(_ context.Context, toChatID int64, origin domain.Origin) error {
	if err := m.copyErr[toChatID]; err != nil {
		return err
	}
	m.copies = append(m.copies, copiedMsg{toChatID, origin})
	return nil
}

func (m *fakeMessenger) ResolveChannel(_ context.Context, username string) (int64, string, error) {
	if m.resolveErr != nil {
		return 0, "", m.resolveErr
	}
	if m.resolve != nil {
		return m.resolve(username)
	}
	return -1000, "Channel " + username, nil
}

func (m *fakeMessenger) lastText(t *testing.T) sentText {
	t.Helper()
	if len(m.texts) == 0 {
		t.Fatal("no text was sent")
	}
	return m.texts[len(m.texts)-1]
}

type fixture struct {
	users    *memUsers
	actions  *memActions
	channels *memChannels
	gate     *fakeGate
	content  *fakeContent
	out      *fakeMessenger
	svc      *Service
}

func newFixture() *fixture {
	actions := &memActions{state: make(map[int64]domain.PendingAction)}
	f := &fixture{
		users:    &memUsers{nextID: 1, byChat: make(map[int64]*domain.User), actions: actions},
		actions:  actions,
		channels: &memChannels{},
		gate:     &fakeGate{},
		content:  newFakeContent(),
		out:      &fakeMessenger{copyErr: make(map[int64]error)},
	}
	f.svc = New(f.users, f.actions, f.channels, f.gate, f.content, f.out)
	return f
}

func (f *fixture) admin(t *testing.T, chatID int64) domain.User {
	t.Helper()
	if _, err := f.users.Create(context.Background(), chatID, fmt.Sprintf("admin-%d", chatID)); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	promoted, err := f.users.Promote(context.Background(), chatID)
	if err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	return promoted
}

func (f *fixture) member(t *testing.T, chatID int64) domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), chatID, fmt.Sprintf("user-%d", chatID))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) action(t *testing.T, userID int64) domain.PendingAction {
	t.Helper()
	a, err := f.actions.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("get action: %v", err)
	}
	return a
}

func TestStartWelcomesWhenGateOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Start(ctx, 100, "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	u, err := f.users.ByChatID(ctx, 100)
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if got := f.action(t, u.ID); got != domain.ActionNone {
		t.Fatalf("fresh user pending action = %s", got)
	}
	if got := f.out.lastText(t); got.text != msgWelcome {
		t.Fatalf("expected welcome, got %q", got.text)
	}
}

func TestStartBlockedByGate(t *testing.T) {
	f := newFixture()
	f.gate.unmet = []domain.Channel{{Username: "alpha", ChatID: -1}}

	if err := f.svc.Start(context.Background(), 100, "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(f.out.prompts) != 1 || f.out.prompts[0] != 100 {
		t.Fatalf("expected one join prompt to 100, got %+v", f.out.prompts)
	}
	if len(f.out.texts) != 0 {
		t.Fatalf("no welcome expected while blocked, got %+v", f.out.texts)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.svc.Start(ctx, 100, "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := f.svc.Start(ctx, 100, "Alice"); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(f.users.byChat) != 1 {
		t.Fatalf("expected one user, got %d", len(f.users.byChat))
	}
}

func TestVerifyEditsPromptInPlace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.gate.unmet = []domain.Channel{{Username: "alpha", ChatID: -1}}

	if err := f.svc.Verify(ctx, 100, "Alice", 555); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(f.out.edits) != 1 {
		t.Fatalf("expected one edit, got %d", len(f.out.edits))
	}
	edit := f.out.edits[0]
	if edit.messageID != 555 || len(edit.channels) != 1 {
		t.Fatalf("unexpected edit %+v", edit)
	}

	// Subscribing empties the unmet set; the same message unlocks.
	f.gate.unmet = nil
	if err := f.svc.Verify(ctx, 100, "Alice", 555); err != nil {
		t.Fatalf("verify after join: %v", err)
	}
	unlocked := f.out.edits[len(f.out.edits)-1]
	if len(unlocked.channels) != 0 {
		t.Fatalf("expected unlock edit, got %+v", unlocked)
	}
}

func TestMenuRejectsNonAdmin(t *testing.T) {
	f := newFixture()
	f.member(t, 100)

	if err := f.svc.Menu(context.Background(), 100, "Alice"); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if got := f.out.lastText(t); got.text != msgNoAdminRights {
		t.Fatalf("expected rejection, got %q", got.text)
	}
	if len(f.out.menus) != 0 {
		t.Fatal("menu must not be shown to non-admins")
	}
}

func TestMenuForAdmin(t *testing.T) {
	f := newFixture()
	f.admin(t, 1)

	if err := f.svc.Menu(context.Background(), 1, "Boss"); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if len(f.out.menus) != 1 || f.out.menus[0] != 1 {
		t.Fatalf("expected menu for chat 1, got %+v", f.out.menus)
	}
}

func TestStats(t *testing.T) {
	f := newFixture()
	f.admin(t, 1)
	f.member(t, 100)
	f.member(t, 101)

	if err := f.svc.Stats(context.Background(), 1, "Boss"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := f.out.lastText(t); got.text != formatStats(3) {
		t.Fatalf("expected stats for 3 users, got %q", got.text)
	}
}

func TestBeginWorkflowNonAdminKeepsState(t *testing.T) {
	f := newFixture()
	u := f.member(t, 100)

	if err := f.svc.BeginBroadcast(context.Background(), 100, "Alice"); err != nil {
		t.Fatalf("begin broadcast: %v", err)
	}
	if got := f.action(t, u.ID); got != domain.ActionNone {
		t.Fatalf("non-admin must not arm workflows, state = %s", got)
	}
	if got := f.out.lastText(t); got.text != msgNoAdminRights {
		t.Fatalf("expected rejection, got %q", got.text)
	}
}

func TestAddChannelFlow(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	ctx := context.Background()

	if err := f.svc.BeginAddChannel(ctx, 1, "Boss"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionAwaitChannel {
		t.Fatalf("state = %s", got)
	}

	if err := f.svc.HandleText(ctx, 1, "Boss", "@movies"); err != nil {
		t.Fatalf("handle text: %v", err)
	}
	if len(f.channels.created) != 1 || f.channels.created[0].Username != "movies" {
		t.Fatalf("channel not created: %+v", f.channels.created)
	}
	if got := f.action(t, a.ID); got != domain.ActionNone {
		t.Fatalf("state not cleared: %s", got)
	}
	if got := f.out.lastText(t); got.text != formatChannelAdded("movies", -1000) {
		t.Fatalf("unexpected confirmation %q", got.text)
	}
}

func TestAddChannelResolveFailureKeepsState(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	ctx := context.Background()
	f.out.resolveErr = errors.New("chat not found")

	if err := f.svc.BeginAddChannel(ctx, 1, "Boss"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.svc.HandleText(ctx, 1, "Boss", "@typo"); err != nil {
		t.Fatalf("handle text: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionAwaitChannel {
		t.Fatalf("state must survive a failed resolve, got %s", got)
	}
	if got := f.out.lastText(t); got.text != msgChannelFailed {
		t.Fatalf("expected resolve failure text, got %q", got.text)
	}
	if len(f.channels.created) != 0 {
		t.Fatal("no channel must be created on failure")
	}
}

func TestPromoteAdminFlow(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	target := f.member(t, 200)
	ctx := context.Background()

	if err := f.svc.BeginAddAdmin(ctx, 1, "Boss"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Malformed id keeps the workflow armed.
	if err := f.svc.HandleText(ctx, 1, "Boss", "not-a-number"); err != nil {
		t.Fatalf("handle bad id: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionAwaitAdminTarget {
		t.Fatalf("state lost after bad input: %s", got)
	}
	if got := f.out.lastText(t); got.text != msgBadChatID {
		t.Fatalf("expected bad id text, got %q", got.text)
	}

	// Unknown id keeps the workflow armed too.
	if err := f.svc.HandleText(ctx, 1, "Boss", "999"); err != nil {
		t.Fatalf("handle unknown id: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionAwaitAdminTarget {
		t.Fatalf("state lost after unknown target: %s", got)
	}

	// Valid target promotes, clears, confirms, and notifies.
	if err := f.svc.HandleText(ctx, 1, "Boss", "200"); err != nil {
		t.Fatalf("handle promote: %v", err)
	}
	promoted, err := f.users.ByChatID(ctx, 200)
	if err != nil || !promoted.IsAdmin {
		t.Fatalf("target not promoted: %+v, %v", promoted, err)
	}
	if got := f.action(t, a.ID); got != domain.ActionNone {
		t.Fatalf("state not cleared: %s", got)
	}
	last := f.out.texts[len(f.out.texts)-1]
	if last.chatID != target.ChatID || last.text != formatPromotedNotice() {
		t.Fatalf("expected notice to target, got %+v", last)
	}
	confirm := f.out.texts[len(f.out.texts)-2]
	if confirm.chatID != 1 || confirm.text != formatPromoted(200) {
		t.Fatalf("expected confirmation to admin, got %+v", confirm)
	}
}

func TestFilmRegistrationFlow(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	ctx := context.Background()
	origin := domain.Origin{ChatID: -500, MessageID: 77}

	if err := f.svc.BeginAddFilm(ctx, 1, "Boss"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionAwaitFilmForward {
		t.Fatalf("state = %s", got)
	}

	if err := f.svc.HandleForward(ctx, 1, "Boss", origin); err != nil {
		t.Fatalf("handle forward: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionAwaitKey {
		t.Fatalf("state after forward = %s", got)
	}
	if got := f.out.lastText(t); got.text != msgPromptKey {
		t.Fatalf("expected key prompt, got %q", got.text)
	}

	if err := f.svc.HandleText(ctx, 1, "Boss", "inception"); err != nil {
		t.Fatalf("handle key: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionNone {
		t.Fatalf("state not cleared: %s", got)
	}
	if got := f.out.lastText(t); got.text != formatKeySaved("inception") {
		t.Fatalf("expected saved text, got %q", got.text)
	}

	// The key now replays the original post for anyone.
	f.member(t, 300)
	if err := f.svc.HandleText(ctx, 300, "Viewer", "inception"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(f.out.copies) != 1 {
		t.Fatalf("expected one copy, got %d", len(f.out.copies))
	}
	if got := f.out.copies[0]; got.to != 300 || got.origin != origin {
		t.Fatalf("unexpected copy %+v", got)
	}
}

func TestAttachKeyWithoutOpenFilm(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	ctx := context.Background()

	if err := f.actions.Set(ctx, a.ID, domain.ActionAwaitKey); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.svc.HandleText(ctx, 1, "Boss", "orphan"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionNone {
		t.Fatalf("state must clear when nothing awaits a key, got %s", got)
	}
	if got := f.out.lastText(t); got.text != msgNoOpenFilm {
		t.Fatalf("expected no-open-film text, got %q", got.text)
	}
}

func TestAttachKeyAlreadyKeyed(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	ctx := context.Background()

	if err := f.svc.BeginAddFilm(ctx, 1, "Boss"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := f.svc.HandleForward(ctx, 1, "Boss", domain.Origin{ChatID: -1, MessageID: 1}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	f.content.attachErr = content.ErrAlreadyKeyed

	if err := f.svc.HandleText(ctx, 1, "Boss", "late"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionNone {
		t.Fatalf("state not cleared: %s", got)
	}
	if got := f.out.lastText(t); got.text != msgKeyAlreadySet {
		t.Fatalf("expected already-keyed text, got %q", got.text)
	}
	if _, ok := f.content.open[a.ID]; ok {
		t.Fatal("registration must be closed")
	}
}

func TestLookupKeyNotFound(t *testing.T) {
	f := newFixture()
	f.member(t, 300)

	if err := f.svc.HandleText(context.Background(), 300, "Viewer", "missing"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := f.out.lastText(t); got.text != msgKeyNotFound {
		t.Fatalf("expected not-found text, got %q", got.text)
	}
}

func TestLookupKeyDeliveryFailure(t *testing.T) {
	f := newFixture()
	f.member(t, 300)
	key := "broken"
	f.content.keyed[key] = []domain.Film{{ID: 1, Key: &key, Origin: domain.Origin{ChatID: -1, MessageID: 1}, IsActive: true}}
	f.out.copyErr[300] = errors.New("blocked")

	if err := f.svc.HandleText(context.Background(), 300, "Viewer", key); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := f.out.lastText(t); got.text != msgDeliveryFailed {
		t.Fatalf("expected delivery failure text, got %q", got.text)
	}
}

func TestBroadcastFlow(t *testing.T) {
	f := newFixture()
	a := f.admin(t, 1)
	second := f.admin(t, 2)
	f.member(t, 100)
	f.member(t, 101)
	f.member(t, 102)
	ctx := context.Background()
	origin := domain.Origin{ChatID: -9, MessageID: 3}

	if err := f.svc.BeginBroadcast(ctx, 1, "Boss"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	f.out.copyErr[101] = errors.New("blocked")

	if err := f.svc.HandleForward(ctx, 1, "Boss", origin); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if got := f.action(t, a.ID); got != domain.ActionNone {
		t.Fatalf("state not cleared: %s", got)
	}

	// Non-admins except the blocked one got the copy; admins got none.
	if len(f.out.copies) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(f.out.copies))
	}
	for _, cp := range f.out.copies {
		if cp.to == 1 || cp.to == 2 {
			t.Fatalf("broadcast must skip admins, delivered to %d", cp.to)
		}
		if cp.origin != origin {
			t.Fatalf("wrong origin %+v", cp.origin)
		}
	}

	// Every admin got the summary notice.
	notice := formatBroadcastNotice(a.ChatID, a.FullName, 2, 1)
	got := map[int64]string{}
	for _, txt := range f.out.texts {
		got[txt.chatID] = txt.text
	}
	if got[a.ChatID] != notice || got[second.ChatID] != notice {
		t.Fatalf("admins missing notice: %+v", got)
	}
}

func TestUnexpectedForward(t *testing.T) {
	f := newFixture()
	f.member(t, 100)

	if err := f.svc.HandleForward(context.Background(), 100, "Alice", domain.Origin{ChatID: -1, MessageID: 1}); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if got := f.out.lastText(t); got.text != msgUnexpectedForward {
		t.Fatalf("expected rejection, got %q", got.text)
	}
}
