package tile

import (
	"github.com/matzehuels/tilesim/pkg/errors"
)

// Connect links connector ai of a with connector bi of b on both sides.
func Connect(a *TileInSpace, ai int, b *TileInSpace, bi int) error {
	if a == b || a.ID == b.ID {
		return errors.New(errors.ErrCodeSelfConnection, "tile %d cannot connect to itself", a.ID)
	}
	ca, cb := a.Connector(ai), b.Connector(bi)
	if !ca.ConnectedTo.IsZero() {
		return errors.New(errors.ErrCodeAlreadyConnected, "tile %d connector %d already connected", a.ID, ai)
	}
	if !cb.ConnectedTo.IsZero() {
		return errors.New(errors.ErrCodeAlreadyConnected, "tile %d connector %d already connected", b.ID, bi)
	}
	ca.ConnectedTo = Ref{Tile: b.ID, Connector: bi}
	cb.ConnectedTo = Ref{Tile: a.ID, Connector: ai}
	return nil
}

// ConnectSurface links connector ri of rod onto the surface of polygon.
func ConnectSurface(rod *TileInSpace, ri int, polygon *TileInSpace) error {
	if rod == polygon || rod.ID == polygon.ID {
		return errors.New(errors.ErrCodeSelfConnection, "tile %d cannot connect to itself", rod.ID)
	}
	c := rod.Connector(ri)
	if !c.ConnectedTo.IsZero() {
		return errors.New(errors.ErrCodeAlreadyConnected, "tile %d connector %d already connected", rod.ID, ri)
	}
	c.ConnectedTo = Ref{Tile: polygon.ID, Connector: SurfaceConnector}
	polygon.surface = append(polygon.surface, Ref{Tile: rod.ID, Connector: ri})
	return nil
}

// Disconnect breaks the link held by connector ai of a. peer must be the tile the
// link points at. Both sides clear their pending flag, record the former link and
// take their NextGlue if one is set.
func Disconnect(a *TileInSpace, ai int, peer *TileInSpace) error {
	ca := a.Connector(ai)
	link := ca.ConnectedTo
	if link.IsZero() {
		return errors.New(errors.ErrCodeInvalidState, "tile %d connector %d is not connected", a.ID, ai)
	}
	if peer == nil || peer.ID != link.Tile {
		return errors.New(errors.ErrCodeTileNotFound, "tile %d connector %d: peer %d not supplied", a.ID, ai, link.Tile)
	}

	if link.IsSurface() {
		back := Ref{Tile: a.ID, Connector: ai}
		kept := peer.surface[:0]
		for _, r := range peer.surface {
			if r != back {
				kept = append(kept, r)
			}
		}
		peer.surface = kept
	} else {
		cb := peer.Connector(link.Connector)
		if cb.ConnectedTo != (Ref{Tile: a.ID, Connector: ai}) {
			return errors.New(errors.ErrCodeInternal, "tile %d connector %d: asymmetric link", a.ID, ai)
		}
		release(cb, Ref{Tile: a.ID, Connector: ai})
	}
	release(ca, link)
	return nil
}

func release(c *ConnectorInSpace, former Ref) {
	c.LastLink = former
	c.ConnectedTo = Ref{}
	c.PendingDisconnect = false
	if c.NextGlue != nil {
		c.Glue = c.NextGlue
		c.NextGlue = nil
	}
}

// MarkDisconnect flags connector ci to be disconnected at the next finalize. next,
// when non-nil, replaces its glue at that point.
func (t *TileInSpace) MarkDisconnect(ci int, next *Glue) {
	c := t.Connector(ci)
	if c.ConnectedTo.IsZero() {
		return
	}
	c.PendingDisconnect = true
	c.NextGlue = next
}
