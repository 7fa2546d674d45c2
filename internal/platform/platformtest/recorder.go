// Package platformtest records outbound platform calls for tests.
package platformtest

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/platform"

	"github.com/bwmarrin/discordgo"
)

var ErrInjected = errors.New("platformtest: injected failure")

type Sent struct {
	ChannelID string
	MessageID string
	Message   *discordgo.MessageSend
}

type Recorder struct {
	mu sync.Mutex

	// Fail makes every call return ErrInjected.
	Fail bool

	Roles       map[string]bool
	MemberRoles map[string][]string

	Deleted   []string
	Sent      []Sent
	Direct    []Sent
	Added     []string
	Reactions []string
	Timeouts  map[string]time.Time

	nextID int
}

func NewRecorder() *Recorder {
	return &Recorder{
		Roles:       map[string]bool{},
		MemberRoles: map[string][]string{},
		Timeouts:    map[string]time.Time{},
	}
}

func (r *Recorder) DeleteMessage(channelID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	r.Deleted = append(r.Deleted, channelID+"/"+messageID)
	return nil
}

func (r *Recorder) SendMessage(channelID string, msg *discordgo.MessageSend) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return "", ErrInjected
	}
	r.nextID++
	id := "sent-" + strconv.Itoa(r.nextID)
	r.Sent = append(r.Sent, Sent{ChannelID: channelID, MessageID: id, Message: msg})
	return id, nil
}

func (r *Recorder) SendDirectMessage(userID string, msg *discordgo.MessageSend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	r.Direct = append(r.Direct, Sent{ChannelID: userID, Message: msg})
	return nil
}

func (r *Recorder) AddMemberRole(guildID, userID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	key := guildID + ":" + userID
	r.MemberRoles[key] = append(r.MemberRoles[key], roleID)
	r.Added = append(r.Added, roleID)
	return nil
}

func (r *Recorder) MemberHasRole(guildID, userID, roleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.MemberRoles[guildID+":"+userID] {
		if id == roleID {
			return true
		}
	}
	return false
}

func (r *Recorder) RoleExists(_ string, roleID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Roles[roleID]
}

func (r *Recorder) AddReaction(channelID, messageID, emoji string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	r.Reactions = append(r.Reactions, emoji)
	return nil
}

func (r *Recorder) TimeoutMember(guildID, userID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	r.Timeouts[guildID+":"+userID] = until
	return nil
}

// DeletedCount is safe to call while timers are still firing.
func (r *Recorder) DeletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Deleted)
}

var _ platform.Messenger = (*Recorder)(nil)
