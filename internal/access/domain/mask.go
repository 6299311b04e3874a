package domain

import (
	"strconv"

	"github.com/allisson/restgate/internal/errors"
)

const (
	readBit   = 4
	writeBit  = 2
	deleteBit = 1
)

// Permission is the set of capabilities held by one actor class.
type Permission struct {
	Read   bool
	Write  bool
	Delete bool
}

// PermissionFromDigit decodes one mask digit (4 read, 2 write, 1 delete).
func PermissionFromDigit(d int) (Permission, error) {
	if d < 0 || d > 7 {
		return Permission{}, errors.Wrapf(ErrInvalidMask, "digit %d out of range", d)
	}
	return Permission{
		Read:   d&readBit != 0,
		Write:  d&writeBit != 0,
		Delete: d&deleteBit != 0,
	}, nil
}

// Digit encodes the permission back to its numeric form.
func (p Permission) Digit() int {
	d := 0
	if p.Read {
		d |= readBit
	}
	if p.Write {
		d |= writeBit
	}
	if p.Delete {
		d |= deleteBit
	}
	return d
}

// Allows reports whether the permission includes the capability.
func (p Permission) Allows(c Capability) bool {
	switch c {
	case ReadCapability:
		return p.Read
	case WriteCapability:
		return p.Write
	case DeleteCapability:
		return p.Delete
	default:
		return false
	}
}

// Union returns the capabilities held by either permission.
func (p Permission) Union(o Permission) Permission {
	return Permission{
		Read:   p.Read || o.Read,
		Write:  p.Write || o.Write,
		Delete: p.Delete || o.Delete,
	}
}

// AccessMask holds the permissions of the three actor classes for a collection.
//
// The numeric notation has one digit per class in the order owner, authenticated,
// anonymous, so "660" lets owners and other logged-in users read and write while
// anonymous callers get nothing. Permissions are cumulative: an owner also holds
// the authenticated and anonymous bits.
type AccessMask struct {
	Owner         Permission
	Authenticated Permission
	Anonymous     Permission
}

// ParseAccessMask parses the three-digit notation.
func ParseAccessMask(s string) (AccessMask, error) {
	if len(s) != 3 {
		return AccessMask{}, errors.Wrapf(ErrInvalidMask, "%q must have exactly three digits", s)
	}

	var perms [3]Permission
	for i, r := range s {
		if r < '0' || r > '9' {
			return AccessMask{}, errors.Wrapf(ErrInvalidMask, "%q contains a non-digit", s)
		}
		p, err := PermissionFromDigit(int(r - '0'))
		if err != nil {
			return AccessMask{}, errors.Wrapf(err, "mask %q", s)
		}
		perms[i] = p
	}

	return AccessMask{Owner: perms[0], Authenticated: perms[1], Anonymous: perms[2]}, nil
}

// MustParseAccessMask is like ParseAccessMask but panics on error.
func MustParseAccessMask(s string) AccessMask {
	m, err := ParseAccessMask(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the three-digit notation.
func (m AccessMask) String() string {
	return strconv.Itoa(m.Owner.Digit()) +
		strconv.Itoa(m.Authenticated.Digit()) +
		strconv.Itoa(m.Anonymous.Digit())
}

// Effective returns the permission an actor holds, including the bits of every
// less privileged class.
func (m AccessMask) Effective(a Actor) Permission {
	switch a {
	case ActorOwner:
		return m.Owner.Union(m.Authenticated).Union(m.Anonymous)
	case ActorAuthenticated:
		return m.Authenticated.Union(m.Anonymous)
	default:
		return m.Anonymous
	}
}
