package domain

// Actor is the authenticated staff member behind a request.
type Actor struct {
	UserID    int32
	CompanyID int32
	Email     string
	Role      string
}
