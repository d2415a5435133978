package domain

import "time"

// DCA is a third-party collection agency cases are assigned to.
type DCA struct {
	ID        string
	Name      string
	Region    *string
	CreatedAt time.Time
}

// DCALoad pairs an agency with its active (non-CLOSED) case count.
type DCALoad struct {
	DCA         DCA
	ActiveCases int
}
