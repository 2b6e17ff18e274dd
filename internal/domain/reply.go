package domain

// Reply is the classified shape of one planning-service reply. The concrete
// types below are the only implementations.
type Reply interface {
	reply()
}

type PlainReply struct {
	Text string
}

type ClarifyReply struct {
	Question string
}

// SetReply carries entries of a single card kind.
type SetReply struct {
	Kind    CardKind
	Entries []Entry
	// Text is whatever prose accompanied the set.
	Text string
}

type QuotaExceeded struct {
	Detail string
}

type ServiceError struct {
	Detail string
}

func (PlainReply) reply()    {}
func (ClarifyReply) reply()  {}
func (SetReply) reply()      {}
func (QuotaExceeded) reply() {}
func (ServiceError) reply()  {}

// Classified is a Reply plus the envelope fields every reply may carry.
type Classified struct {
	Reply     Reply
	SessionID string
	FollowUps []string
}
