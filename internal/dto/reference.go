package dto

// ReferenceQuery filters a reference table listing.
type ReferenceQuery struct {
	Pattern    string `form:"pattern"`
	Department string `form:"department"`
	Reset      bool   `form:"reset"`
}
