package model

type Restriction string

const (
	RestrictionOpen   Restriction = "OPEN"
	RestrictionClosed Restriction = "CLOSED"
)

func (r Restriction) Valid() bool {
	return r == RestrictionOpen || r == RestrictionClosed
}

func (r Restriction) String() string {
	return string(r)
}
