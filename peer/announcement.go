package peer

import "github.com/bzz/radicle-peer/identity"

// AnnouncementUpdates is the result of one Announce subroutine run: the
// project/revision pairs that were broadcast to the network. Opaque beyond
// that from the reducer's point of view — it is only ever carried through
// to an Event.
type AnnouncementUpdates struct {
	Items []AnnouncementUpdate
}

// AnnouncementUpdate names a single project update that was announced.
type AnnouncementUpdate struct {
	URN identity.URN
	Rev string
}
