package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

var errPlatform = errors.New("platform unavailable")

type delivery struct {
	To  string
	Msg Outbound
}

type communityPrompt struct {
	FlowID  string
	Options []Community
}

// fakePlatform is an in-memory Platform that records every call.
type fakePlatform struct {
	mu sync.Mutex

	communities []Community
	mutual      map[string][]Community // user id -> shared communities
	names       map[string]string      // community/user -> display name
	files       map[string][]byte      // attachment url -> content

	threads    map[string]string // thread id -> name
	archived   map[string]bool
	nextThread int

	dms              []delivery
	threadMsgs       []delivery
	reactions        []MessageRef
	identityPrompts  []string
	communityPrompts []communityPrompt

	failCreate bool
	failReact  bool
	failDM     bool
}

func newFakePlatform(communities ...Community) *fakePlatform {
	return &fakePlatform{
		communities: communities,
		mutual:      map[string][]Community{},
		names:       map[string]string{},
		files:       map[string][]byte{},
		threads:     map[string]string{},
		archived:    map[string]bool{},
	}
}

func (f *fakePlatform) SendDirect(_ context.Context, userID string, msg Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDM {
		return errPlatform
	}
	f.dms = append(f.dms, delivery{To: userID, Msg: msg})
	return nil
}

func (f *fakePlatform) SendThread(_ context.Context, threadID string, msg Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadID]; !ok {
		return fmt.Errorf("unknown thread %s", threadID)
	}
	f.threadMsgs = append(f.threadMsgs, delivery{To: threadID, Msg: msg})
	return nil
}

func (f *fakePlatform) CreateThread(_ context.Context, channelID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return "", errPlatform
	}
	f.nextThread++
	id := fmt.Sprintf("thread-%d", f.nextThread)
	f.threads[id] = name
	return id, nil
}

func (f *fakePlatform) ArchiveThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[threadID] = true
	return nil
}

func (f *fakePlatform) ThreadExists(_ context.Context, threadID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.threads[threadID]
	return ok
}

func (f *fakePlatform) React(_ context.Context, ref MessageRef, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReact {
		return errPlatform
	}
	f.reactions = append(f.reactions, ref)
	return nil
}

func (f *fakePlatform) Communities(context.Context) ([]Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Community(nil), f.communities...), nil
}

func (f *fakePlatform) MutualCommunities(_ context.Context, userID string) ([]Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Community(nil), f.mutual[userID]...), nil
}

func (f *fakePlatform) Community(_ context.Context, id string) (Community, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.communities {
		if c.ID == id {
			return c, nil
		}
	}
	return Community{}, ErrUnknownCommunity
}

func (f *fakePlatform) DisplayName(_ context.Context, communityID, userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.names[communityID+"/"+userID]
}

func (f *fakePlatform) PromptIdentity(_ context.Context, _ string, flowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDM {
		return errPlatform
	}
	f.identityPrompts = append(f.identityPrompts, flowID)
	return nil
}

func (f *fakePlatform) PromptCommunity(_ context.Context, _ string, flowID string, options []Community) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.communityPrompts = append(f.communityPrompts, communityPrompt{FlowID: flowID, Options: options})
	return nil
}

func (f *fakePlatform) Fetch(_ context.Context, a Attachment) (File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[a.URL]
	if !ok {
		return File{}, errPlatform
	}
	return File{Name: a.Filename, ContentType: a.ContentType, Data: b}, nil
}

func (f *fakePlatform) lastIdentityPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.identityPrompts) == 0 {
		return ""
	}
	return f.identityPrompts[len(f.identityPrompts)-1]
}

func (f *fakePlatform) threadContents(threadID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.threadMsgs {
		if d.To == threadID {
			out = append(out, d.Msg.Content)
		}
	}
	return out
}

func (f *fakePlatform) dmContents(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.dms {
		if d.To == userID {
			out = append(out, d.Msg.Content)
		}
	}
	return out
}

// staticConfigs is an in-memory ConfigSource.
type staticConfigs map[string]domain.CommunityConfig

func (s staticConfigs) Get(_ context.Context, id string) (domain.CommunityConfig, error) {
	if c, ok := s[id]; ok {
		return c, nil
	}
	return domain.CommunityConfig{CommunityID: id}, nil
}
