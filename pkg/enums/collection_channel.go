package enums

import "fmt"

// CollectionChannel names the route an attempt uses to collect a charge.
type CollectionChannel string

const (
	CollectionChannelDirectDebit CollectionChannel = "direct_debit"
	CollectionChannelManual      CollectionChannel = "manual"
)

var validCollectionChannels = []CollectionChannel{
	CollectionChannelDirectDebit,
	CollectionChannelManual,
}

// String implements fmt.Stringer.
func (c CollectionChannel) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c CollectionChannel) IsValid() bool {
	for _, candidate := range validCollectionChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCollectionChannel converts raw input into a CollectionChannel.
func ParseCollectionChannel(value string) (CollectionChannel, error) {
	for _, candidate := range validCollectionChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collection channel %q", value)
}
