package models

// Profile holds the contact details a user fills in at signup. It is 1:1
// with User by email. Blocked is not a column of the profiles table — it is
// populated by queries that join the users row, so callers checking access
// see the block flag alongside the contact details.
type Profile struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MobileNumber   string `json:"mobileNumber"`
	MobileVerified bool   `json:"mobileVerified"`
	Blocked        bool   `json:"blocked"`
}
