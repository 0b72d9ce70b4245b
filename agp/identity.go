// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

package agp

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// RouterID identifies a router in the AGP plane (GLOSSARY: router_id),
// aliased directly to ids.NodeID so RIB/peer code can compare IDs with
// == rather than a method call.
type RouterID = ids.NodeID

// PeerID identifies the session peer that announced or withdrew a route
// (GLOSSARY: peer_id). Same underlying shape as RouterID: an AGP peer is
// itself a router.
type PeerID = ids.NodeID

// ADN is the autonomous-domain identifier carried in a route's path and
// compared against a RIB's own identity for loop detection. It is an
// ids.ID, a 32-byte value, not a 32-bit number.
type ADN = ids.ID

// RouterIDFromString derives a deterministic RouterID from an arbitrary
// operator-supplied string (a --router-id flag, a config value).
// ids.NodeIDFromString expects its own encoded form, not a free string,
// so operator-chosen names are hashed down into the fixed-width ID
// space instead.
func RouterIDFromString(s string) RouterID {
	sum := sha256.Sum256([]byte(s))
	var id RouterID
	copy(id[:], sum[:len(id)])
	return id
}

// PeerIDFromString derives a deterministic PeerID the same way as
// RouterIDFromString.
func PeerIDFromString(s string) PeerID {
	return PeerID(RouterIDFromString(s))
}

// ADNFromString derives a deterministic ADN from an arbitrary
// operator-supplied string (a --adn flag, a config value).
func ADNFromString(s string) ADN {
	sum := sha256.Sum256([]byte(s))
	var id ADN
	copy(id[:], sum[:len(id)])
	return id
}
