// Package repo maps domain types to documents. It is the only place that
// knows collection names and field spellings.
package repo

import (
	"ahorro/internal/docstore"
)

const (
	colUsers           = "users"
	colUsernames       = "usernames"
	colSummaries       = "summaries"
	colPublicSummaries = "public_summaries"
	colFriendRequests  = "friend_requests"
	colCredentials     = "credentials"
)

func transactionsCol(uid string) string {
	return docstore.Path("expenses", uid, "transactions")
}

func friendsCol(uid string) string {
	return docstore.Path("friends", uid, "list")
}

// Set groups every collection over one accessor, either a store or an open
// transaction.
type Set struct {
	Users           *Users
	Usernames       *Usernames
	Expenses        *Expenses
	Summaries       *Summaries
	PublicSummaries *PublicSummaries
	FriendRequests  *FriendRequests
	Friends         *Friends
	Credentials     *Credentials
}

func For(db docstore.Accessor) Set {
	return Set{
		Users:           &Users{db: db},
		Usernames:       &Usernames{db: db},
		Expenses:        &Expenses{db: db},
		Summaries:       &Summaries{db: db},
		PublicSummaries: &PublicSummaries{db: db},
		FriendRequests:  &FriendRequests{db: db},
		Friends:         &Friends{db: db},
		Credentials:     &Credentials{db: db},
	}
}
