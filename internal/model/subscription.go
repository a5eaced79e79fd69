package model

import "time"

// Subscription tracks one reader's progress through one document.
// Cursor is a 1-indexed character offset of the next unread character; it never decreases.
type Subscription struct {
	ID          string    `json:"id"`
	ReaderEmail string    `json:"reader_email"`
	DocumentID  string    `json:"document_id"`
	Cursor      int       `json:"cursor"`
	PageLength  int       `json:"page_length"`
	AccessDate  time.Time `json:"access_date"`
	IsActive    bool      `json:"is_active"`
}

// ScopeKind selects which subscriptions a delivery pass targets.
type ScopeKind int

const (
	// ScopeAll targets every active subscription.
	ScopeAll ScopeKind = iota
	// ScopeReader targets every active subscription of one reader.
	ScopeReader
	// ScopeSubscription targets the subscription of one reader to one document.
	ScopeSubscription
)

// AllReaders is the on-demand trigger sentinel meaning "every reader".
const AllReaders = "ALL"

// Scope is the set of subscriptions a delivery pass targets.
type Scope struct {
	Kind        ScopeKind
	ReaderEmail string
	DocumentID  string
}

// NewScope maps the on-demand trigger arguments to a Scope.
// The AllReaders sentinel selects every subscription; an empty documentID selects all of the reader's.
func NewScope(readerEmail, documentID string) Scope {
	switch {
	case readerEmail == AllReaders:
		return Scope{Kind: ScopeAll}
	case documentID == "":
		return Scope{Kind: ScopeReader, ReaderEmail: readerEmail}
	default:
		return Scope{Kind: ScopeSubscription, ReaderEmail: readerEmail, DocumentID: documentID}
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeAll:
		return "all"
	case ScopeReader:
		return "reader:" + s.ReaderEmail
	default:
		return "subscription:" + s.ReaderEmail + "/" + s.DocumentID
	}
}
