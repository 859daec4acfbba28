// Package session carries the authenticated caller explicitly.  The JWT
// middleware builds a Session and handlers pass it to services by value;
// nothing reads identity from globals.
package session

import "github.com/iliyamo/studio-booking/internal/model"

// Session identifies the caller of one request.  The zero value is a
// guest.
type Session struct {
	UserID uint64
	Role   string
}

// Guest reports whether nobody is signed in.
func (s Session) Guest() bool { return s.UserID == 0 }

func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

// CanAccess reports whether the caller may read or act on a record owned
// by ownerID.
func (s Session) CanAccess(ownerID uint64) bool {
	return !s.Guest() && (s.IsAdmin() || s.UserID == ownerID)
}
