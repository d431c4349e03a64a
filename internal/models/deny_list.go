package models

import "time"

// DenyListEntry is a blocked IP address or CIDR block.
type DenyListEntry struct {
	ID         int64
	IPAddress  string
	ReasonCode int
	CreatedAt  time.Time
}

// DenyReasons maps reason codes to the labels shown in the deny access view.
var DenyReasons = map[int]string{
	0: "Manually Denied",
	1: "Excessive Login Attempts",
	2: "Malicious User",
	3: "Hacking Attempt",
	4: "Spam",
	5: "Obscene Language",
	6: "Illegal Activity",
}

// Reason returns the label for the entry's reason code.
func (e DenyListEntry) Reason() string {
	if label, ok := DenyReasons[e.ReasonCode]; ok {
		return label
	}
	return DenyReasons[0]
}

// DenialRequest is a single submission of the deny access form.
type DenialRequest struct {
	Add       *DenyListEntry // non-nil for an addition
	RemoveIPs []string       // addresses to remove
}
