package enums

import "slices"

// PublishState tracks a product's listing on the provider side.
type PublishState string

const (
	PublishStatePublishing PublishState = "publishing"
	PublishStatePublished  PublishState = "published"
	PublishStateFailed     PublishState = "failed"
)

var publishStates = []PublishState{PublishStatePublishing, PublishStatePublished, PublishStateFailed}

func (s PublishState) String() string { return string(s) }

func (s PublishState) IsValid() bool { return slices.Contains(publishStates, s) }

func ParsePublishState(raw string) (PublishState, error) {
	return parse("publish state", raw, publishStates)
}
