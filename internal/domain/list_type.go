package domain

// ListType identifies one of the two explicit domain lists an appliance
// exposes. The set is closed: subscription blocklists and regex rules are
// managed by the appliances themselves and are never synchronized.
type ListType string

const (
	Whitelist ListType = "whitelist"
	Blacklist ListType = "blacklist"
)

// ListTypes is the fixed iteration order used everywhere a run walks both
// lists, so two runs over the same fleet always report in the same order.
var ListTypes = []ListType{Whitelist, Blacklist}

func (t ListType) Valid() bool {
	return t == Whitelist || t == Blacklist
}

func (t ListType) String() string {
	return string(t)
}
