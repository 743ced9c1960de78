package chat

import "time"

// Notice is a transient banner. Seq identifies it so a late expiry cannot clear a newer one.
type Notice struct {
	Seq  int
	Text string
}

type Notices struct {
	ttl     time.Duration
	seq     int
	current *Notice
}

func NewNotices(ttl time.Duration) *Notices {
	return &Notices{ttl: ttl}
}

func (n *Notices) TTL() time.Duration { return n.ttl }

// Show replaces the current banner. Schedule Expire(notice.Seq) after TTL.
func (n *Notices) Show(text string) Notice {
	n.seq++
	notice := Notice{Seq: n.seq, Text: text}
	n.current = &notice
	return notice
}

// Expire clears the banner if it is still the one identified by seq.
func (n *Notices) Expire(seq int) bool {
	if n.current == nil || n.current.Seq != seq {
		return false
	}
	n.current = nil
	return true
}

func (n *Notices) Current() (string, bool) {
	if n.current == nil {
		return "", false
	}
	return n.current.Text, true
}
