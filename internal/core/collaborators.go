package core

import (
	"context"
	"net/netip"
	"sort"
	"strings"
	"sync"

	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/sccperr"
)

// LegHandle identifies a call leg in the external PBX.
type LegHandle string

// ChannelInfo is a point-in-time copy of a channel handed to collaborators.
// It carries ids only; collaborators call back into Core by CallID.
type ChannelInfo struct {
	CallID   uint32
	Line     string
	Device   string
	Instance uint32
	Type     CallType
	State    ChannelState
	Context  string
	Dialed   string
	Leg      LegHandle

	CallingName   string
	CallingNumber string
	CalledName    string
	CalledNumber  string
}

// Bridge connects channels to the general-purpose PBX. Core never blocks on
// a Bridge while holding an entity lock, so implementations may call back
// into Core synchronously.
type Bridge interface {
	// AllocateLeg creates the PBX side of an outbound call.
	AllocateLeg(ctx context.Context, ch ChannelInfo) (LegHandle, error)
	// RequestMediaOpen asks the PBX to negotiate media. The PBX answers by
	// calling Core.OpenMedia and later Core.StartMedia.
	RequestMediaOpen(ch ChannelInfo, prefs []protocol.Codec) error
	// NotifyCallState reports a local state change.
	NotifyCallState(ch ChannelInfo, state ChannelState)
	// MediaReceiveReady passes on the phone's RTP receive address.
	MediaReceiveReady(ch ChannelInfo, addr netip.AddrPort)
	// SendDigit forwards an in-call keypad press.
	SendDigit(ch ChannelInfo, digit byte)
	// Transfer joins the far ends of from and to.
	Transfer(from, to ChannelInfo) error
	// Hangup tears down the PBX leg after a local hangup.
	Hangup(ch ChannelInfo)
}

// NopBridge accepts every request and does nothing.
type NopBridge struct{}

var _ Bridge = NopBridge{}

func (NopBridge) AllocateLeg(_ context.Context, ch ChannelInfo) (LegHandle, error) {
	return LegHandle("nop/" + ch.Line), nil
}
func (NopBridge) RequestMediaOpen(ChannelInfo, []protocol.Codec) error { return nil }
func (NopBridge) NotifyCallState(ChannelInfo, ChannelState)            {}
func (NopBridge) MediaReceiveReady(ChannelInfo, netip.AddrPort)        {}
func (NopBridge) SendDigit(ChannelInfo, byte)                          {}
func (NopBridge) Transfer(ChannelInfo, ChannelInfo) error {
	return sccperr.Rejected("transfer", "no bridge configured")
}
func (NopBridge) Hangup(ChannelInfo) {}

// MatchResult is the dial plan verdict for a number.
type MatchResult int

const (
	NoMatch MatchResult = iota
	PartialMatch
	ExactMatch
)

func (m MatchResult) String() string {
	switch m {
	case PartialMatch:
		return "partial"
	case ExactMatch:
		return "exact"
	}
	return "none"
}

// DialPlan decides whether a collected number can be dialed.
type DialPlan interface {
	Resolve(context, number string) MatchResult
}

// PatternDialPlan matches numbers against extension patterns per context.
// 'X' matches any digit and a trailing '.' matches one or more further
// characters.
type PatternDialPlan struct {
	mu       sync.RWMutex
	contexts map[string][]string
}

// NewPatternDialPlan copies the pattern lists.
func NewPatternDialPlan(contexts map[string][]string) *PatternDialPlan {
	p := &PatternDialPlan{}
	p.Update(contexts)
	return p
}

// Update replaces every pattern list.
func (p *PatternDialPlan) Update(contexts map[string][]string) {
	copied := make(map[string][]string, len(contexts))
	for ctx, patterns := range contexts {
		copied[ctx] = append([]string(nil), patterns...)
	}
	p.mu.Lock()
	p.contexts = copied
	p.mu.Unlock()
}

// Resolve returns the best result over all patterns of context.
func (p *PatternDialPlan) Resolve(context, number string) MatchResult {
	p.mu.RLock()
	patterns := p.contexts[context]
	p.mu.RUnlock()
	best := NoMatch
	for _, pattern := range patterns {
		if r := matchPattern(pattern, number); r > best {
			best = r
		}
	}
	return best
}

// Contexts returns the configured context names.
func (p *PatternDialPlan) Contexts() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.contexts))
	for name := range p.contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchPattern(pattern, number string) MatchResult {
	pattern = strings.ToUpper(pattern)
	for i := 0; i < len(number); i++ {
		if i >= len(pattern) {
			return NoMatch
		}
		p, c := pattern[i], number[i]
		switch {
		case p == '.':
			return ExactMatch
		case p == 'X':
			if c < '0' || c > '9' {
				return NoMatch
			}
		case p != c:
			return NoMatch
		}
	}
	if len(number) == len(pattern) {
		return ExactMatch
	}
	return PartialMatch
}

// FeatureRequest is a completed digit collection for a feature other than
// plain dialing and call forward.
type FeatureRequest struct {
	Mode    SimpleSwitchMode
	Param   int
	Digits  string
	Device  string
	Channel ChannelInfo

	// PickupGroups is set for group pickup from the line's pickup_group.
	PickupGroups []int
}

// Features implements call pickup, meet-me, barge, park and the transfer
// of a call to voicemail.
type Features interface {
	Complete(ctx context.Context, req FeatureRequest) error
	Park(ctx context.Context, ch ChannelInfo) error
}

// NopFeatures rejects every feature request.
type NopFeatures struct{}

func (NopFeatures) Complete(_ context.Context, req FeatureRequest) error {
	return sccperr.Rejected("feature", "%s is not available", req.Mode)
}

func (NopFeatures) Park(context.Context, ChannelInfo) error {
	return sccperr.Rejected("feature", "park is not available")
}
