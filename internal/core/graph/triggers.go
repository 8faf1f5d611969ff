package graph

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/easydapp/jelly-packages/internal/core/link"
)

// minClockSleep is the shortest allowed polling interval, in milliseconds.
const minClockSleep = 10000

// CallTrigger decides when a call runs: on page load, on a timer or on a
// click.
type CallTrigger struct {
	Loading *LoadingTrigger `json:"loading,omitempty"`
	Clock   *ClockTrigger   `json:"clock,omitempty"`
	Click   *ClickTrigger   `json:"click,omitempty"`
}

type LoadingTrigger struct {
	Alive *uint32 `json:"alive,omitempty"`
}

type ClockTrigger struct {
	Sleep   uint32 `json:"sleep"`
	Loading *bool  `json:"loading,omitempty"`
}

type ClickTrigger struct {
	Text *link.InputValue `json:"text,omitempty"`
}

func (t *CallTrigger) UnmarshalJSON(data []byte) error {
	type plain CallTrigger
	if err := json.Unmarshal(data, (*plain)(t)); err != nil {
		return err
	}
	return exactlyOne("call trigger", t.Loading != nil, t.Clock != nil, t.Click != nil)
}

func (t CallTrigger) check(endpoints *AllEndpoints, from link.ComponentID) error {
	switch {
	case t.Clock != nil:
		if t.Clock.Sleep < minClockSleep {
			return link.Common(link.KindInvalidCallTrigger, from, "sleep time must be greater than 10000ms, but got %d", t.Clock.Sleep)
		}
	case t.Click != nil && t.Click.Text != nil:
		return endpoints.CheckTextInput(*t.Click.Text, from, notBlank, InputRule{
			Kind:     link.KindInvalidCallTrigger,
			Invalid:  "click text must not be empty",
			NotConst: "click text must not be text value",
			NotType:  "click text must not be text type",
		})
	}
	return nil
}

func notBlank(s string) bool {
	return s != ""
}

// TriggerKind is the kind of component that recorded a trigger.
type TriggerKind uint8

const (
	TriggerIdentity TriggerKind = iota
	TriggerCall
	TriggerInteraction
)

// Triggered is what a component recorded about how it is started. Identity
// and interaction entries know their clickability up front; call entries are
// resolved by ResolveTriggers.
type Triggered struct {
	Kind     TriggerKind
	Identity *link.ComponentID
	Click    bool
	Mutating bool

	clickable *bool
}

func identityTriggered(click bool) *Triggered {
	return &Triggered{Kind: TriggerIdentity, Click: click, clickable: &click}
}

func callTriggered(identity *link.ComponentID, click, mutating bool) *Triggered {
	return &Triggered{Kind: TriggerCall, Identity: identity, Click: click, Mutating: mutating}
}

func interactionTriggered() *Triggered {
	clickable := true
	return &Triggered{Kind: TriggerInteraction, clickable: &clickable}
}

// Clickable reports the resolved clickability and whether it is known.
func (t *Triggered) Clickable() (clickable, resolved bool) {
	if t.clickable == nil {
		return false, false
	}
	return *t.clickable, true
}

type triggerResolver struct {
	ctx      *Context
	index    *Index
	resolver *Resolver
}

// ResolveTriggers makes sure every mutating call is started by a user
// action, directly or through an upstream identity or interaction, unless it
// runs under an anonymous identity. Triggers are resolved in input order.
func ResolveTriggers(ctx *Context, index *Index, colors Colors) error {
	r := &triggerResolver{ctx: ctx, index: index, resolver: NewResolver(index, colors)}
	for _, c := range index.Components() {
		id := IDOf(c)
		if t, ok := ctx.Triggers[id]; ok {
			if err := r.resolve(id, t); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *triggerResolver) resolve(id link.ComponentID, t *Triggered) error {
	if t.clickable != nil {
		return nil
	}
	set := func(v bool) error {
		t.clickable = &v
		return nil
	}
	if t.Kind != TriggerCall {
		return set(t.Kind == TriggerInteraction || t.Click)
	}
	if t.Click {
		return set(true)
	}

	if t.Identity != nil {
		clickable, err := r.clickable(*t.Identity)
		if err != nil {
			return err
		}
		if clickable {
			return set(true)
		}
	}

	for _, inlet := range r.resolver.Endpoints(id, true).InletsInterruptedByForm() {
		clickable, err := r.clickable(inlet)
		if err != nil {
			return err
		}
		if clickable {
			return set(true)
		}
	}

	anonymous, err := r.anonymous(t.Identity)
	if err != nil {
		return err
	}
	if anonymous || !t.Mutating {
		return set(false)
	}
	return link.Common(link.KindInvalidCallTrigger, id, "must be click for updating call")
}

// clickable resolves the trigger recorded by id, if any.
func (r *triggerResolver) clickable(id link.ComponentID) (bool, error) {
	t, ok := r.ctx.Triggers[id]
	if !ok {
		return false, nil
	}
	if err := r.resolve(id, t); err != nil {
		return false, err
	}
	clickable, _ := t.Clickable()
	return clickable, nil
}

func (r *triggerResolver) anonymous(identity *link.ComponentID) (bool, error) {
	if identity == nil {
		return true, nil
	}
	c, ok := r.index.Get(*identity)
	if !ok {
		return false, &link.Error{Kind: link.KindInvalidComponentID, ID: *identity}
	}
	i, ok := c.(*Identity)
	if !ok {
		return false, nil
	}
	return i.IsAnonymous(), nil
}

func (k TriggerKind) String() string {
	switch k {
	case TriggerIdentity:
		return "identity"
	case TriggerCall:
		return "call"
	case TriggerInteraction:
		return "interaction"
	}
	return fmt.Sprintf("trigger(%d)", uint8(k))
}
